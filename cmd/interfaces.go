package cmd

import (
	"context"

	"github.com/anicoll/anova-integration/internal/pkg/anova"
	"github.com/anicoll/anova-integration/internal/pkg/model"
	"github.com/anicoll/anova-integration/internal/pkg/mqtt"
)

// AnovaService defines what cmd.run expects from the relay session.
type AnovaService interface {
	Login(ctx context.Context) error
	Disconnected() <-chan error
	Close() error
	Ovens() []*anova.Oven
	OnDeviceDiscovered(h anova.DiscoveryHandler)
	OnCommandOutcome(h anova.OutcomeHandler)
}

// Bridge is the Home Assistant side: a publisher sink that also owns the recipe switches.
type Bridge interface {
	Write(ctx context.Context, readings []model.Reading) error
	RegisterDevice(ctx context.Context, device model.Device) error
	AddOven(oven mqtt.Oven) error
	PublishSwitchStates(deviceID string)
	RegisterSwitches(deviceID string) error
}
