package anova

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

// commander sends a command on behalf of one device and waits for its outcome.
type commander interface {
	SendCommand(ctx context.Context, deviceID string, command model.Command, payload any) error
}

// Oven holds the last snapshot reported for one device.
type Oven struct {
	id     string
	sender commander
	logger *zap.Logger

	mu       sync.RWMutex
	name     string
	state    model.OvenState
	handlers []EventHandler
}

func newOven(id, name string, initial model.OvenState, sender commander, logger *zap.Logger) *Oven {
	return &Oven{
		id:     id,
		name:   name,
		state:  initial,
		sender: sender,
		logger: logger.With(zap.String("device_id", id)),
	}
}

func (o *Oven) ID() string {
	return o.id
}

func (o *Oven) Name() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.name
}

// Device describes the oven for host integrations.
func (o *Oven) Device() model.Device {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return model.Device{
		ID:              o.id,
		Name:            o.name,
		FirmwareVersion: o.state.SystemInfo.FirmwareVersion,
		HardwareVersion: o.state.SystemInfo.HardwareVersion,
	}
}

// State returns the current snapshot. Callers must treat it as read-only.
func (o *Oven) State() model.OvenState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// OnEvent registers a handler for events raised by this oven.
// Handlers run on the relay read goroutine and must not wait for a command outcome.
func (o *Oven) OnEvent(h EventHandler) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.handlers = append(o.handlers, h)
}

// SetName renames the oven and raises EventNameChanged when the name differs.
func (o *Oven) SetName(name string) {
	o.mu.Lock()
	if o.name == name {
		o.mu.Unlock()
		return
	}
	old := o.name
	o.name = name
	o.mu.Unlock()

	o.logger.Info("oven renamed", zap.String("from", old), zap.String("to", name))
	o.emit(Event{Type: EventNameChanged, DeviceID: o.id, Name: name})
}

// ApplySnapshot replaces the state and raises cook events when the presence of an
// active cook changed.
func (o *Oven) ApplySnapshot(s model.OvenState) {
	o.mu.Lock()
	prev := o.state
	o.state = s
	o.mu.Unlock()

	if regressed(prev.UpdatedTimestamp, s.UpdatedTimestamp) {
		o.logger.Warn("snapshot older than the one it replaces",
			zap.String("previous", prev.UpdatedTimestamp),
			zap.String("current", s.UpdatedTimestamp))
	}
	if prev.State.Mode != s.State.Mode {
		o.logger.Info("oven mode changed",
			zap.String("from", string(prev.State.Mode)),
			zap.String("to", string(s.State.Mode)))
	}

	switch {
	case prev.Cook == nil && s.Cook != nil:
		o.logger.Info("oven started cooking", zap.String("cook_id", s.Cook.CookID))
		o.emit(Event{Type: EventCookStarted, DeviceID: o.id, Cook: s.Cook})
	case prev.Cook != nil && s.Cook == nil:
		o.logger.Info("oven finished cooking", zap.String("cook_id", prev.Cook.CookID))
		o.emit(Event{Type: EventCookEnded, DeviceID: o.id})
	}
	o.emit(Event{Type: EventStateUpdated, DeviceID: o.id})
}

// IsOn reports whether the oven is in cook mode.
func (o *Oven) IsOn() bool {
	return o.State().State.Mode == model.ModeCook
}

// IsCooking reports whether the active cook runs the given stages.
func (o *Oven) IsCooking(stages []model.Stage) (bool, error) {
	cook := o.State().Cook
	if cook == nil {
		return false, nil
	}
	return model.StageListsEqual(cook.Stages, stages)
}

// StartCook sends the stages as a new cook and returns its cook id once the oven
// accepted it. Stages without an id get one; the caller's slice is not modified.
func (o *Oven) StartCook(ctx context.Context, stages []model.Stage) (string, error) {
	prepared := make([]model.Stage, len(stages))
	copy(prepared, stages)
	for i := range prepared {
		if prepared[i].ID == "" {
			prepared[i].ID = uuid.NewString()
		}
	}

	cookID := uuid.NewString()
	req := model.StartCookRequest{
		Payload: model.StartCookPayload{
			CookID: cookID,
			Stages: prepared,
		},
		Type: model.StartCook,
		ID:   o.id,
	}
	if err := o.sender.SendCommand(ctx, o.id, model.StartCook, req); err != nil {
		return "", err
	}
	return cookID, nil
}

func (o *Oven) StopCook(ctx context.Context) error {
	req := model.StopCookRequest{
		Type: model.StopCook,
		ID:   o.id,
	}
	return o.sender.SendCommand(ctx, o.id, model.StopCook, req)
}

func (o *Oven) MakeToast(ctx context.Context) (string, error) {
	return o.StartCook(ctx, model.ToastStages())
}

func (o *Oven) emit(e Event) {
	o.mu.RLock()
	handlers := append([]EventHandler(nil), o.handlers...)
	o.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

func regressed(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	p, err := time.Parse(time.RFC3339Nano, prev)
	if err != nil {
		return false
	}
	n, err := time.Parse(time.RFC3339Nano, next)
	if err != nil {
		return false
	}
	return n.Before(p)
}
