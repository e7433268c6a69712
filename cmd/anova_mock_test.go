package cmd

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/anova"
	"github.com/anicoll/anova-integration/internal/pkg/model"
	"github.com/anicoll/anova-integration/internal/pkg/mqtt"
)

// MockAnovaService is a mock implementation of the AnovaService interface backed by a
// real registry, so discovered ovens behave like the ones the relay reports.
type MockAnovaService struct {
	LoginFunc       func(ctx context.Context) error
	SendCommandFunc func(ctx context.Context, deviceID string, command model.Command, payload any) error

	registry     *anova.Registry
	disconnected chan error

	mu       sync.Mutex
	logins   int
	closed   int
	outcomes []anova.OutcomeHandler
}

func newMockAnovaService(logger *zap.Logger) *MockAnovaService {
	m := &MockAnovaService{disconnected: make(chan error, 1)}
	m.registry = anova.NewRegistry(m, logger)
	return m
}

func (m *MockAnovaService) Login(ctx context.Context) error {
	m.mu.Lock()
	m.logins++
	m.mu.Unlock()
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx)
	}
	return nil
}

func (m *MockAnovaService) Disconnected() <-chan error {
	return m.disconnected
}

func (m *MockAnovaService) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *MockAnovaService) Ovens() []*anova.Oven {
	return m.registry.List()
}

func (m *MockAnovaService) OnDeviceDiscovered(h anova.DiscoveryHandler) {
	m.registry.OnDiscovered(h)
}

func (m *MockAnovaService) OnCommandOutcome(h anova.OutcomeHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes = append(m.outcomes, h)
}

func (m *MockAnovaService) SendCommand(ctx context.Context, deviceID string, command model.Command, payload any) error {
	if m.SendCommandFunc != nil {
		return m.SendCommandFunc(ctx, deviceID, command, payload)
	}
	return nil
}

func (m *MockAnovaService) loginCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.logins
}

func (m *MockAnovaService) closeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockBridge struct {
	// release, when set, holds every Write until it is closed.
	release chan struct{}

	mu         sync.Mutex
	registered []model.Device
	added      []string
	readings   []model.Reading
	entered    int
	writes     int
	switchPubs int
	reswitched int
}

func (b *mockBridge) Write(ctx context.Context, readings []model.Reading) error {
	b.mu.Lock()
	b.entered++
	b.mu.Unlock()
	if b.release != nil {
		select {
		case <-b.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes++
	b.readings = append(b.readings, readings...)
	return nil
}

func (b *mockBridge) RegisterDevice(_ context.Context, device model.Device) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = append(b.registered, device)
	return nil
}

func (b *mockBridge) AddOven(oven mqtt.Oven) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.added = append(b.added, oven.ID())
	return nil
}

func (b *mockBridge) PublishSwitchStates(string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.switchPubs++
}

func (b *mockBridge) RegisterSwitches(string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reswitched++
	return nil
}

func (b *mockBridge) writeCounts() (entered, written int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.entered, b.writes
}

func (b *mockBridge) switchCounts() (published, reregistered int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.switchPubs, b.reswitched
}

func (b *mockBridge) lastReading(slug string) (model.Reading, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := len(b.readings) - 1; i >= 0; i-- {
		if b.readings[i].Sensor.Slug == slug {
			return b.readings[i], true
		}
	}
	return model.Reading{}, false
}

func (b *mockBridge) snapshot() (registered []model.Device, added []string, readings int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]model.Device(nil), b.registered...), append([]string(nil), b.added...), len(b.readings)
}
