package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SweepReport counts what one sweep did.  Failed holds the error for each
// auction that could not be ended; those are retried on the next sweep.
type SweepReport struct {
	Expired int
	Ended   int
	Skipped int
	Failed  map[uint64]error
}

// Scheduler periodically ends expired auctions.  It owns one background
// goroutine between Start and Stop.
type Scheduler struct {
	life     *Lifecycle
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler sweeps every interval (one minute when interval <= 0).
func NewScheduler(life *Lifecycle, interval time.Duration, log zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Scheduler{
		life:     life,
		interval: interval,
		log:      log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the sweep loop.  Calling Start on a running scheduler does
// nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	go s.run(ctx, s.done)
	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep ends every auction that is ONGOING with a deadline at or before
// now.  A failure on one auction is logged and recorded in the report; the
// remaining auctions are still attempted.
func (s *Scheduler) Sweep(ctx context.Context) SweepReport {
	rep := SweepReport{Failed: map[uint64]error{}}
	now := s.life.opts.Clock()

	listCtx, cancel := context.WithTimeout(ctx, s.life.opts.TxTimeout)
	expired, err := s.life.store.Auctions.ListExpired(listCtx, now)
	cancel()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list expired auctions")
		return rep
	}
	rep.Expired = len(expired)

	for _, a := range expired {
		if ctx.Err() != nil {
			break
		}
		res, err := s.life.EndAuction(ctx, a)
		switch {
		case err != nil:
			rep.Failed[a.ID] = err
			s.log.Error().Err(err).Uint64("auction_id", a.ID).Msg("failed to end auction")
		case res == nil:
			rep.Skipped++
		default:
			rep.Ended++
		}
	}
	if rep.Expired > 0 {
		s.log.Info().
			Int("expired", rep.Expired).
			Int("ended", rep.Ended).
			Int("skipped", rep.Skipped).
			Int("failed", len(rep.Failed)).
			Msg("sweep finished")
	}
	return rep
}
