package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/nicholascarismo/inventory-checker-bot/internal/config"
	"github.com/nicholascarismo/inventory-checker-bot/internal/inventory"
)

// Service rebuilds the inventory snapshot on a fixed period and on demand.
// Timer and manual builds are not mutually excluded; whichever completes last
// owns the live snapshot.
type Service struct {
	builder *inventory.Builder
	store   *inventory.Store
	cfg     config.Config
	log     *slog.Logger
}

func NewService(builder *inventory.Builder, store *inventory.Store, cfg config.Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{builder: builder, store: store, cfg: cfg, log: log}
}

func (s *Service) Run(ctx context.Context) error {
	_, _ = s.runOnce(ctx, "startup")

	if maxJitter := s.cfg.RefreshJitterMaxSec; maxJitter > 0 {
		jitter := time.Duration(rand.Intn(maxJitter+1)) * time.Second
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(jitter):
		}
	}

	interval := time.Duration(s.cfg.RefreshIntervalMin) * time.Minute
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
		_, _ = s.runOnce(ctx, "timer")
	}
}

// TriggerManual rebuilds on its own goroutine and returns immediately; notify
// receives the outcome. ctx must outlive the triggering request.
func (s *Service) TriggerManual(ctx context.Context, notify func(error, *inventory.Index)) {
	go func() {
		idx, err := s.runOnce(ctx, "manual")
		if notify != nil {
			notify(err, idx)
		}
	}()
}

func (s *Service) runOnce(ctx context.Context, trigger string) (*inventory.Index, error) {
	trace := uuid.NewString()[:8]
	started := time.Now()
	RefreshInflight.Inc()
	defer RefreshInflight.Dec()

	s.log.Info("index refresh started", "trigger", trigger, "trace", trace)

	idx, err := s.builder.Build(ctx)
	elapsed := time.Since(started)
	RefreshDuration.Observe(elapsed.Seconds())

	if err != nil {
		RefreshRuns.WithLabelValues(trigger, "error").Inc()
		s.log.Error("index refresh failed, previous snapshot retained",
			"trigger", trigger, "trace", trace, "elapsed", elapsed, "err", err)
		return nil, err
	}

	s.store.Replace(idx)
	RefreshRuns.WithLabelValues(trigger, "ok").Inc()
	s.log.Info("index refresh complete",
		"trigger", trigger,
		"trace", trace,
		"elapsed", elapsed,
		"version", idx.Version,
		"scanned", idx.Scanned,
		"categories", len(idx.Categories),
		"variants", idx.VariantCount())
	return idx, nil
}
