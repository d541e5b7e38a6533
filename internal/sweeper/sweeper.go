// Package sweeper is the periodic trigger for time-based booking
// transitions: it expires unpaid bookings past their payment deadline
// and completes paid bookings whose session has ended. Expiry stays
// cooperative; a booking is also checked lazily when a payment
// confirmation arrives, so the sweep cadence only bounds how long a
// stale row lingers.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dancelink/settled/internal/config"
	"github.com/dancelink/settled/internal/metrics"
	"github.com/dancelink/settled/internal/service/bookingservice"
	"github.com/dancelink/settled/internal/service/settlementservice"
)

//go:generate mockgen -source=sweeper.go -destination=mock_sweeper.go -package=sweeper

type Settlement interface {
	Apply(ctx context.Context, event settlementservice.Event) (*settlementservice.Result, error)
}

type Service struct {
	bookingRepo bookingservice.Repo
	settlement  Settlement
	workerPool  WorkerPoolI
	interval    time.Duration
	limit       int
	now         func() time.Time

	inFlight sync.Map
}

func New(cfg *config.Config, bookingRepo bookingservice.Repo, settlement Settlement) *Service {
	return &Service{
		bookingRepo: bookingRepo,
		settlement:  settlement,
		workerPool:  NewWorkerPool(cfg.SweepWorkers),
		interval:    cfg.SweepInterval,
		limit:       cfg.SweepBatchLimit,
		now:         time.Now,
	}
}

func (s *Service) Start(ctx context.Context) {
	zap.L().Info("Sweeper started", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Service) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			zap.L().Info("Context canceled, stopping sweeper")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over expirable and completable bookings. Each id
// is dispatched through the settlement orchestrator so the sweep shares
// guards and atomicity with every other trigger.
func (s *Service) Sweep(ctx context.Context) {
	metrics.RecordSweepRun()
	now := s.now()

	expirable, err := s.bookingRepo.ListExpirable(ctx, now, s.limit)
	if err != nil {
		zap.L().Error("Failed to list expirable bookings", zap.Error(err))
	} else {
		s.dispatch(ctx, expirable, settlementservice.EventDeadlineSweep, "expire")
	}

	completable, err := s.bookingRepo.ListCompletable(ctx, now, s.limit)
	if err != nil {
		zap.L().Error("Failed to list completable bookings", zap.Error(err))
	} else {
		s.dispatch(ctx, completable, settlementservice.EventCompletionSweep, "complete")
	}
}

func (s *Service) dispatch(ctx context.Context, bookingIDs []int, kind settlementservice.EventKind, action string) {
	var g errgroup.Group
	for _, bookingID := range bookingIDs {
		bookingID := bookingID

		if _, loaded := s.inFlight.LoadOrStore(bookingID, struct{}{}); loaded {
			continue
		}

		g.Go(func() error {
			err := s.workerPool.AddTask(ctx, func() error {
				defer s.inFlight.Delete(bookingID)
				_, err := s.settlement.Apply(ctx, settlementservice.Event{
					Kind:      kind,
					BookingID: bookingID,
				})
				if err != nil {
					return err
				}
				metrics.RecordSweptBooking(action)
				return nil
			})
			if err != nil {
				s.inFlight.Delete(bookingID)
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		zap.L().Error("Error dispatching sweep tasks", zap.Error(err))
	}
}
