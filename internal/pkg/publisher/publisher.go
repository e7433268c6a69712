package publisher

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

var errAlreadyRegistered = errors.New("publisher already registered")

type publisher interface {
	// Write publishes sensor readings to the adapter.
	Write(ctx context.Context, readings []model.Reading) error
	RegisterDevice(ctx context.Context, device model.Device) error
}

// Publisher fans oven readings out to every registered adapter, skipping values that
// have not changed since they were last published.
type Publisher struct {
	logger *zap.Logger
	now    func() time.Time

	mu         sync.RWMutex
	publishers map[string]publisher
	sensors    sync.Map
}

func New(logger *zap.Logger) *Publisher {
	return &Publisher{
		logger:     logger,
		now:        time.Now,
		publishers: make(map[string]publisher),
	}
}

func (p *Publisher) Register(name string, pub publisher) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.publishers[name]; ok {
		return errAlreadyRegistered
	}
	p.publishers[name] = pub
	return nil
}

// PublishState derives readings from the snapshot and writes the changed ones. Values
// are only remembered once a sink accepted them, so failed writes are retried with the
// next snapshot.
func (p *Publisher) PublishState(ctx context.Context, deviceID string, s model.OvenState) error {
	readings := lo.Filter(Readings(deviceID, s, p.now()), func(r model.Reading, _ int) bool {
		return p.changed(r)
	})
	if len(readings) == 0 {
		return nil
	}

	p.mu.RLock()
	written := 0
	for name, pub := range p.publishers {
		if err := pub.Write(ctx, readings); err != nil {
			p.logger.Error("failed to publish data", zap.Error(err), zap.String("publisher", name))
			continue
		}
		written++
		p.logger.Debug("updated sensors", zap.Int("count", len(readings)), zap.String("publisher", name))
	}
	sinks := len(p.publishers)
	p.mu.RUnlock()

	if written > 0 || sinks == 0 {
		for _, r := range readings {
			p.remember(r)
		}
	}
	return nil
}

// RegisterDevice announces the oven to every adapter. Cached values for the device are
// dropped so the next snapshot is published in full.
func (p *Publisher) RegisterDevice(ctx context.Context, device model.Device) error {
	p.forget(device.ID)

	p.mu.RLock()
	defer p.mu.RUnlock()
	for name, pub := range p.publishers {
		if err := pub.RegisterDevice(ctx, device); err != nil {
			p.logger.Error("failed to register device", zap.Error(err), zap.String("publisher", name))
			continue
		}
		p.logger.Debug("registered device", zap.String("device", device.ID), zap.String("publisher", name))
	}
	return nil
}

func (p *Publisher) changed(r model.Reading) bool {
	oldValue, exists := p.sensors.Load(sensorKey(r))
	return !exists || !strings.EqualFold(r.Value, oldValue.(string))
}

func (p *Publisher) remember(r model.Reading) {
	if _, loaded := p.sensors.Swap(sensorKey(r), r.Value); !loaded {
		p.logger.Info("configured sensor", zap.String("device", r.DeviceID), zap.String("sensor", r.Sensor.Slug), zap.String("value", r.Value))
	}
}

func sensorKey(r model.Reading) string {
	return r.DeviceID + "_" + r.Sensor.Slug
}

func (p *Publisher) forget(deviceID string) {
	prefix := deviceID + "_"
	p.sensors.Range(func(key, _ any) bool {
		if strings.HasPrefix(key.(string), prefix) {
			p.sensors.Delete(key)
		}
		return true
	})
}

// Readings derives the sensor values of one snapshot. Sensors without a value in the
// snapshot are omitted.
func Readings(deviceID string, s model.OvenState, at time.Time) []model.Reading {
	readings := []model.Reading{}
	add := func(slug, value string) {
		sensor, ok := lo.Find(model.OvenSensors, func(s model.Sensor) bool {
			return s.Slug == slug
		})
		if !ok {
			return
		}
		readings = append(readings, model.Reading{
			DeviceID:  deviceID,
			Sensor:    sensor,
			Value:     value,
			Timestamp: at,
		})
	}

	bulbs := s.Nodes.TemperatureBulbs
	add("mode", string(s.State.Mode))
	add("dry_bulb_temperature", formatFloat(bulbs.Dry.Current.Celsius))
	if bulbs.Dry.Setpoint != nil {
		add("dry_bulb_setpoint", formatFloat(bulbs.Dry.Setpoint.Celsius))
	}
	add("wet_bulb_temperature", formatFloat(bulbs.Wet.Current.Celsius))
	if rh := s.Nodes.SteamGenerators.RelativeHumidity; rh != nil && rh.Current != nil {
		add("relative_humidity", formatFloat(*rh.Current))
	}
	add("fan_speed", strconv.Itoa(s.Nodes.Fan.Speed))
	add("timer_initial", strconv.Itoa(s.Nodes.Timer.Initial))
	add("timer_current", strconv.Itoa(s.Nodes.Timer.Current))
	add("door", lo.Ternary(s.Nodes.Door.Closed, "closed", "open"))
	add("water_tank", lo.Ternary(s.Nodes.WaterTank.Empty, "empty", "ok"))
	add("probe", lo.Ternary(s.Nodes.TemperatureProbe.Connected, "connected", "disconnected"))
	stages := 0
	if s.Cook != nil {
		stages = len(s.Cook.Stages)
	}
	add("cook_stages", strconv.Itoa(stages))
	return readings
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
