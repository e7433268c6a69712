package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gosimple/slug"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

const (
	// DefaultPendingWindow is how long a switch reports the requested state while the
	// oven has not caught up yet.
	DefaultPendingWindow = 3 * time.Second

	switchCommandTimeout = 30 * time.Second
)

// Oven is what the bridge needs from an oven.
type Oven interface {
	ID() string
	Device() model.Device
	IsOn() bool
	IsCooking(stages []model.Stage) (bool, error)
	StartCook(ctx context.Context, stages []model.Stage) (string, error)
	StopCook(ctx context.Context) error
}

type recipeSwitch struct {
	recipe model.Recipe
	base   string

	mu      sync.Mutex
	pending *bool
	expires time.Time
}

func (sw *recipeSwitch) setPending(on bool, expires time.Time) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pending = &on
	sw.expires = expires
}

func (sw *recipeSwitch) clearPending() {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.pending = nil
}

// reported returns the requested state while it is pending, otherwise the oven's.
func (sw *recipeSwitch) reported(current bool, now time.Time) bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.pending != nil && *sw.pending != current && now.Before(sw.expires) {
		return *sw.pending
	}
	return current
}

type ovenSwitches struct {
	oven     Oven
	switches []*recipeSwitch
}

// AddOven publishes the switch configs of the oven and subscribes to their command topics.
// The caller republishes states with PublishSwitchStates. Adding an oven twice is a no-op.
func (s *Bridge) AddOven(oven Oven) error {
	s.mu.Lock()
	if _, ok := s.ovens[oven.ID()]; ok {
		s.mu.Unlock()
		return nil
	}
	recipes := lo.Filter(s.recipes, func(r model.Recipe, _ int) bool {
		return r.Device == "" || r.Device == oven.ID()
	})
	entry := &ovenSwitches{
		oven: oven,
		switches: lo.Map(recipes, func(r model.Recipe, _ int) *recipeSwitch {
			return &recipeSwitch{recipe: r, base: s.switchBase(oven.ID(), r.Name)}
		}),
	}
	s.ovens[oven.ID()] = entry
	s.mu.Unlock()

	if err := s.registerSwitches(entry); err != nil {
		return err
	}
	for _, sw := range entry.switches {
		sw := sw
		token := s.client.Subscribe(sw.base+"/set", 1, func(_ paho_mqtt.Client, msg paho_mqtt.Message) {
			// commands wait on the oven, so they must not hold up the paho router.
			go s.handleSwitchCommand(entry, sw, string(msg.Payload()))
		})
		if !token.WaitTimeout(publishTimeout) {
			return ErrPublishTimeout
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("subscribing to %s: %w", sw.base, err)
		}
	}

	s.publishSwitchStates(entry)
	return nil
}

// PublishSwitchStates republishes the state of every switch of the oven.
func (s *Bridge) PublishSwitchStates(deviceID string) {
	if entry, ok := s.entry(deviceID); ok {
		s.publishSwitchStates(entry)
	}
}

// RegisterSwitches republishes the switch configs of the oven, e.g. after a rename.
func (s *Bridge) RegisterSwitches(deviceID string) error {
	entry, ok := s.entry(deviceID)
	if !ok {
		return nil
	}
	return s.registerSwitches(entry)
}

func (s *Bridge) entry(deviceID string) (*ovenSwitches, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.ovens[deviceID]
	return entry, ok
}

func (s *Bridge) handleSwitchCommand(entry *ovenSwitches, sw *recipeSwitch, payload string) {
	logger := s.logger.With(zap.String("device_id", entry.oven.ID()), zap.String("recipe", sw.recipe.Name))
	var on bool
	switch {
	case strings.EqualFold(payload, model.SwitchOn):
		on = true
	case strings.EqualFold(payload, model.SwitchOff):
		on = false
	default:
		logger.Warn("ignoring switch command", zap.String("payload", payload))
		return
	}
	logger.Debug("set recipe", zap.Bool("on", on))

	sw.setPending(on, s.now().Add(s.pendingWindow))
	s.publishSwitchState(entry.oven, sw)
	time.AfterFunc(s.pendingWindow, func() {
		s.publishSwitchState(entry.oven, sw)
	})

	ctx, cancel := context.WithTimeout(context.Background(), switchCommandTimeout)
	defer cancel()

	var err error
	if on {
		_, err = entry.oven.StartCook(ctx, sw.recipe.Stages)
	} else {
		err = entry.oven.StopCook(ctx)
	}
	if err != nil {
		logger.Error("error setting recipe", zap.Error(err))
		sw.clearPending()
		s.publishSwitchState(entry.oven, sw)
	}
}

func (s *Bridge) publishSwitchStates(entry *ovenSwitches) {
	for _, sw := range entry.switches {
		s.publishSwitchState(entry.oven, sw)
	}
}

func (s *Bridge) publishSwitchState(oven Oven, sw *recipeSwitch) {
	current, err := s.switchCurrent(oven, sw)
	if err != nil {
		s.logger.Warn("cannot compare active cook with recipe", zap.Error(err), zap.String("recipe", sw.recipe.Name))
	}
	state := lo.Ternary(sw.reported(current, s.now()), model.SwitchOn, model.SwitchOff)
	if err := s.publish(sw.base+"/state", true, []byte(state)); err != nil {
		s.logger.Error("failed to publish switch state", zap.Error(err), zap.String("recipe", sw.recipe.Name))
	}
}

// The power on switch follows the oven mode; recipe switches follow the active cook.
func (s *Bridge) switchCurrent(oven Oven, sw *recipeSwitch) (bool, error) {
	if sw.recipe.Name == model.PowerOnRecipeName {
		return oven.IsOn(), nil
	}
	return oven.IsCooking(sw.recipe.Stages)
}

func (s *Bridge) registerSwitches(entry *ovenSwitches) error {
	device := entry.oven.Device()
	for _, sw := range entry.switches {
		payload, err := json.Marshal(model.RegisterMessage{
			Tilda:        sw.base,
			Name:         sw.recipe.Name,
			ID:           fmt.Sprintf("%s_%s", nodeID(device.ID), slug.Make(sw.recipe.Name)),
			StateTopic:   "~/state",
			CommandTopic: "~/set",
			Icon:         "mdi:stove",
			Device:       registerDevice(device),
		})
		if err != nil {
			return err
		}
		if err := s.publish(sw.base+"/config", true, payload); err != nil {
			return fmt.Errorf("registering switch %s: %w", sw.recipe.Name, err)
		}
	}
	return nil
}

func (s *Bridge) switchBase(deviceID, recipe string) string {
	return fmt.Sprintf("%s/switch/%s/%s", s.prefix, nodeID(deviceID), slug.Make(recipe))
}
