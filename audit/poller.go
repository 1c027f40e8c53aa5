package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

const swapLogDepth = 20

// Publisher posts a status line to the outside world.
type Publisher interface {
	Publish(ctx context.Context, message string) error
}

// Store is the on-disk snapshot of previously observed mints.
type Store interface {
	Load(ctx context.Context) (map[string]Mint, error)
	Put(ctx context.Context, mint Mint) error
}

// Poller periodically fetches the audit service's state, compares it with
// the snapshot and publishes what changed.
type Poller struct {
	Interval time.Duration

	client    *Client
	publisher Publisher
	store     Store
	log       *slog.Logger

	lastSwap int64
}

func NewPoller(client *Client, publisher Publisher, store Store, interval time.Duration, log *slog.Logger) *Poller {
	return &Poller{
		Interval:  interval,
		client:    client,
		publisher: publisher,
		store:     store,
		log:       log,
	}
}

// Run polls until ctx is cancelled. A failed tick is logged and retried
// on the next interval; there is no backoff beyond the interval itself.
func (p *Poller) Run(ctx context.Context) error {
	// swaps older than startup are history, not news
	p.lastSwap = time.Now().Unix()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		if err := p.tick(ctx); err != nil {
			p.log.Error("poll failed", "err", err)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (p *Poller) tick(ctx context.Context) error {
	mints, err := p.client.Mints(ctx)
	if err != nil {
		return err
	}

	known, err := p.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	for _, mint := range mints {
		prev, seen := known[mint.ID]

		if !seen {
			p.announce(ctx, FormatMintChange(nil, mint))
		} else if prev.State != mint.State {
			p.announce(ctx, FormatMintChange(&prev, mint))
		}

		if err := p.store.Put(ctx, mint); err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
	}

	swaps, err := p.client.Swaps(ctx, swapLogDepth)
	if err != nil {
		return err
	}

	byID := lo.KeyBy(mints, func(m Mint) string { return m.ID })

	news := lo.Filter(swaps, func(s Swap, _ int) bool { return s.CreatedAt > p.lastSwap })
	// oldest first, so messages read in event order
	for i := len(news) - 1; i >= 0; i-- {
		p.announce(ctx, FormatSwap(byID, news[i]))
		if news[i].CreatedAt > p.lastSwap {
			p.lastSwap = news[i].CreatedAt
		}
	}

	return nil
}

func (p *Poller) announce(ctx context.Context, message string) {
	p.log.Info("publishing", "message", message)
	if err := p.publisher.Publish(ctx, message); err != nil {
		p.log.Error("publish failed", "err", err)
	}
}
