package controllers

import (
	"github.com/vadesk/VADesk/app/repository"
	"github.com/vadesk/VADesk/internal/pkg/billing"
	"github.com/vadesk/VADesk/internal/pkg/cache"
	"github.com/vadesk/VADesk/internal/pkg/config"
	"github.com/vadesk/VADesk/internal/pkg/metrics/counter"
	"github.com/vadesk/VADesk/internal/pkg/projection"
	"github.com/vadesk/VADesk/internal/pkg/session"
)

// Gateway bundles the validated config and collaborators for all handlers.
// It is constructed once at startup; handlers never reach for ambient state.
type Gateway struct {
	cfg     *config.Config
	repos   *repository.Repositories
	billing *billing.Service
	codec   *session.CookieCodec
	cache   *cache.Client
	counter *counter.Counter
	sink    *projection.Client
}

// NewGateway wires the gateway. cache, counter and sink may be nil; the
// gateway degrades gracefully without them.
func NewGateway(
	cfg *config.Config,
	repos *repository.Repositories,
	codec *session.CookieCodec,
	cacheClient *cache.Client,
	ingestCounter *counter.Counter,
	sink *projection.Client,
) *Gateway {
	return &Gateway{
		cfg:     cfg,
		repos:   repos,
		billing: billing.NewService(repos.Account),
		codec:   codec,
		cache:   cacheClient,
		counter: ingestCounter,
		sink:    sink,
	}
}
