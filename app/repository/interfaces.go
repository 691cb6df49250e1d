package repository

import (
	"context"

	"github.com/vadesk/VADesk/app/models"
)

// ReceiptRepository persists write-once event receipts.
type ReceiptRepository interface {
	// Create writes the receipt only if none exists yet;
	// objectstore.ErrKeyExists signals a duplicate delivery.
	Create(ctx context.Context, receipt *models.Receipt) error
	Exists(ctx context.Context, source, eventID string) (bool, error)
}

// AccountRepository persists canonical accounts and the correlation index
// mapping payment intents to accounts.
type AccountRepository interface {
	Get(ctx context.Context, accountID string) (*models.Account, error)
	// FindByEmail scans account records for a case-insensitive email match;
	// objectstore.ErrNotFound when no account carries the address.
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	Put(ctx context.Context, account *models.Account) error
	GetCorrelation(ctx context.Context, provider, paymentIntentID string) (*models.CorrelationIndexEntry, error)
	PutCorrelation(ctx context.Context, provider string, entry *models.CorrelationIndexEntry) error
}

// SupportRepository persists support threads.
type SupportRepository interface {
	Get(ctx context.Context, supportID string) (*models.SupportThread, error)
	Put(ctx context.Context, thread *models.SupportThread) error
}

// DirectoryRepository persists published profiles and the directory index.
type DirectoryRepository interface {
	GetIndex(ctx context.Context) (*models.DirectoryIndex, error)
	PutIndex(ctx context.Context, index *models.DirectoryIndex) error
	GetProfile(ctx context.Context, slug string) (*models.ProfilePage, error)
	PutProfile(ctx context.Context, page *models.ProfilePage) error
}

// AuthRepository persists login tokens and sessions.
type AuthRepository interface {
	// CreateLoginToken is create-only; a hash collision surfaces as
	// objectstore.ErrKeyExists.
	CreateLoginToken(ctx context.Context, token *models.LoginToken) error
	GetLoginToken(ctx context.Context, tokenHash string) (*models.LoginToken, error)
	SaveLoginToken(ctx context.Context, token *models.LoginToken) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	SaveSession(ctx context.Context, session *models.Session) error
}
