package anova

import (
	"context"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/metrics"
)

const (
	stateDisconnected  = "disconnected"
	stateConnecting    = "connecting"
	stateAuthenticated = "authenticated"

	eventDial         = "dial"
	eventAuthenticate = "authenticate"
	eventDrop         = "drop"
)

func newSession(logger *zap.Logger) *fsm.FSM {
	return fsm.NewFSM(
		stateDisconnected,
		fsm.Events{
			{Name: eventDial, Src: []string{stateDisconnected}, Dst: stateConnecting},
			{Name: eventAuthenticate, Src: []string{stateConnecting}, Dst: stateAuthenticated},
			{Name: eventDrop, Src: []string{stateConnecting, stateAuthenticated}, Dst: stateDisconnected},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Info("relay session state changed", zap.String("from", e.Src), zap.String("to", e.Dst))
				if e.Dst == stateAuthenticated {
					metrics.SessionAuthenticated.Set(1)
				} else {
					metrics.SessionAuthenticated.Set(0)
				}
			},
		},
	)
}
