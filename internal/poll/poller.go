// Package poll re-fetches the peer list on a fixed period as a fallback for
// missed push events. Results merge through the same idempotent store
// operations the push path uses, so a poll can never duplicate state.
package poll

import (
	"context"
	"fmt"
	"time"

	"github.com/jmendes/peerchat/internal/backend"
	"github.com/jmendes/peerchat/internal/pending"
	"github.com/jmendes/peerchat/internal/state"
	"github.com/jmendes/peerchat/internal/store"
	"go.uber.org/zap"
)

// Defaults applied when the config leaves the knobs unset.
const (
	DefaultInterval     = 2 * time.Second
	DefaultFetchTimeout = 5 * time.Second
)

// Poller periodically reconciles the peer list into the conversation store
// and sweeps the optimistic-send tracker.
type Poller struct {
	client   backend.Client
	db       *store.DB
	state    *state.Container
	pending  *pending.Tracker
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration
	cancel   context.CancelFunc
}

// NewPoller creates a poller. interval and timeout fall back to defaults
// when <= 0.
func NewPoller(client backend.Client, db *store.DB, st *state.Container, p *pending.Tracker, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		client:   client,
		db:       db,
		state:    st,
		pending:  p,
		logger:   logger,
		interval: interval,
		timeout:  timeout,
	}
}

// Start begins the poll loop.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	go p.loop(ctx)
}

// Stop stops the poll loop.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one poll cycle. Exported so tests and startup can run it
// directly.
func (p *Poller) Tick(ctx context.Context) {
	if dropped := p.pending.Sweep(); dropped > 0 {
		p.logger.Info("dropped expired echo entries", zap.Int("count", dropped))
	}

	fetchCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	peers, err := p.client.Peers(fetchCtx)
	if err != nil {
		// Fail closed: a definite error state, never an indefinite hang.
		// The next cycle retries implicitly.
		p.logger.Warn("peer fetch failed", zap.Error(err))
		p.state.SetError(fmt.Errorf("peer fetch: %w", err))
		return
	}

	for _, peer := range peers {
		if err := p.db.UpsertConversation(peer.ID, peer.Name, peer.IsGroup()); err != nil {
			p.logger.Error("merge peer", zap.Error(err), zap.String("peer", peer.ID))
		}
	}
	p.state.SetError(nil)

	convs, err := p.db.ListConversations()
	if err != nil {
		p.logger.Error("list conversations", zap.Error(err))
		return
	}
	p.state.SetConversations(convs)
}
