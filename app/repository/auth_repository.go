package repository

import (
	"context"

	"github.com/vadesk/VADesk/app/models"
	"github.com/vadesk/VADesk/internal/pkg/objectstore"
)

type authRepository struct {
	store objectstore.Store
}

func (r *authRepository) CreateLoginToken(ctx context.Context, token *models.LoginToken) error {
	return putJSONIfAbsent(ctx, r.store, models.LoginTokenKey(token.TokenHash), token)
}

func (r *authRepository) GetLoginToken(ctx context.Context, tokenHash string) (*models.LoginToken, error) {
	var token models.LoginToken
	if err := getJSON(ctx, r.store, models.LoginTokenKey(tokenHash), &token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (r *authRepository) SaveLoginToken(ctx context.Context, token *models.LoginToken) error {
	return putJSON(ctx, r.store, models.LoginTokenKey(token.TokenHash), token)
}

func (r *authRepository) CreateSession(ctx context.Context, session *models.Session) error {
	return putJSONIfAbsent(ctx, r.store, models.SessionKey(session.SessionID), session)
}

func (r *authRepository) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	var session models.Session
	if err := getJSON(ctx, r.store, models.SessionKey(sessionID), &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *authRepository) SaveSession(ctx context.Context, session *models.Session) error {
	return putJSON(ctx, r.store, models.SessionKey(session.SessionID), session)
}
