package sessions

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultPruneSpec matches connect-pg-simple's default prune interval.
const DefaultPruneSpec = "@every 15m"

// Pruner periodically deletes expired sessions from a Store.
type Pruner struct {
	store   Store
	cron    *cron.Cron
	timeout time.Duration
}

// NewPruner schedules store pruning on spec, a standard cron expression or
// descriptor such as "@every 15m".
func NewPruner(store Store, spec string) (*Pruner, error) {
	p := &Pruner{
		store:   store,
		cron:    cron.New(),
		timeout: 30 * time.Second,
	}
	if _, err := p.cron.AddFunc(spec, p.prune); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return p, nil
}

// Start runs the schedule in the background.
func (p *Pruner) Start() {
	log.Info().Msg("Starting session pruner...")
	p.cron.Start()
}

// Stop halts the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	<-p.cron.Stop().Done()
	log.Info().Msg("Stopped session pruner.")
}

func (p *Pruner) prune() {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	n, err := p.store.PruneExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to prune expired sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("Pruned expired sessions")
	}
}
