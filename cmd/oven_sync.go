package cmd

import (
	"context"

	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/anova"
	"github.com/anicoll/anova-integration/internal/pkg/publisher"
)

// ovenSync publishes one oven to the host sinks on its own goroutine. Oven events run on
// the relay read goroutine, so they only mark work as due; the latest snapshot is read
// when the work runs and intermediate snapshots are skipped.
type ovenSync struct {
	oven   *anova.Oven
	pub    *publisher.Publisher
	bridge Bridge
	logger *zap.Logger

	stateDue   chan struct{}
	renamedDue chan struct{}
}

func newOvenSync(oven *anova.Oven, pub *publisher.Publisher, bridge Bridge, logger *zap.Logger) *ovenSync {
	return &ovenSync{
		oven:       oven,
		pub:        pub,
		bridge:     bridge,
		logger:     logger.With(zap.String("device_id", oven.ID())),
		stateDue:   make(chan struct{}, 1),
		renamedDue: make(chan struct{}, 1),
	}
}

// handle never blocks.
func (s *ovenSync) handle(e anova.Event) {
	switch e.Type {
	case anova.EventStateUpdated:
		notify(s.stateDue)
	case anova.EventNameChanged:
		notify(s.renamedDue)
	case anova.EventCookStarted:
		s.logger.Info("cook started", zap.String("cook_id", e.Cook.CookID))
	case anova.EventCookEnded:
		s.logger.Info("cook ended")
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *ovenSync) run(ctx context.Context) error {
	if err := s.pub.RegisterDevice(ctx, s.oven.Device()); err != nil {
		s.logger.Error("failed to register oven", zap.Error(err))
	}
	if s.bridge != nil {
		if err := s.bridge.AddOven(s.oven); err != nil {
			s.logger.Error("failed to add recipe switches", zap.Error(err))
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.renamedDue:
			if err := s.pub.RegisterDevice(ctx, s.oven.Device()); err != nil {
				s.logger.Error("failed to register renamed oven", zap.Error(err))
			}
			if s.bridge != nil {
				if err := s.bridge.RegisterSwitches(s.oven.ID()); err != nil {
					s.logger.Error("failed to re-register switches", zap.Error(err))
				}
			}
		case <-s.stateDue:
			if err := s.pub.PublishState(ctx, s.oven.ID(), s.oven.State()); err != nil {
				s.logger.Error("failed to publish state", zap.Error(err))
			}
			if s.bridge != nil {
				s.bridge.PublishSwitchStates(s.oven.ID())
			}
		}
	}
}
