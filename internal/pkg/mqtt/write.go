package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gosimple/slug"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

type sensorState struct {
	Value             string `json:"value"`
	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
}

// Write publishes one state message per reading.
func (s *Bridge) Write(ctx context.Context, readings []model.Reading) error {
	for _, r := range readings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.PublishData(r); err != nil {
			return err
		}
	}
	return nil
}

// RegisterDevice publishes the sensor discovery configs of the oven. Unchanged devices
// are not re-published.
func (s *Bridge) RegisterDevice(_ context.Context, device model.Device) error {
	s.mu.Lock()
	previous, exists := s.configuredDevices[device.ID]
	s.mu.Unlock()
	if exists && previous == device {
		return nil
	}

	for _, sensor := range model.OvenSensors {
		payload, err := json.Marshal(s.sensorRegisterMsg(device, sensor))
		if err != nil {
			return err
		}
		if err := s.publish(s.sensorBase(device.ID, sensor.Slug)+"/config", true, payload); err != nil {
			return fmt.Errorf("registering sensor %s: %w", sensor.Slug, err)
		}
	}

	s.mu.Lock()
	s.configuredDevices[device.ID] = device
	s.mu.Unlock()
	return nil
}

func (s *Bridge) PublishData(r model.Reading) error {
	state := sensorState{Value: r.Value}
	if !r.Sensor.IsText() {
		state.UnitOfMeasurement = r.Sensor.Unit
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return s.publish(s.sensorBase(r.DeviceID, r.Sensor.Slug)+"/state", false, payload)
}

func nodeID(deviceID string) string {
	return slug.Make("anova " + deviceID)
}

func (s *Bridge) sensorBase(deviceID, sensorSlug string) string {
	return fmt.Sprintf("%s/sensor/%s/%s", s.prefix, nodeID(deviceID), sensorSlug)
}

func registerDevice(device model.Device) model.RegisterDevice {
	return model.RegisterDevice{
		Name:         device.Name,
		Identifiers:  []string{nodeID(device.ID)},
		Model:        model.OvenModel,
		Manufacturer: model.Manufacturer,
		SerialNumber: device.ID,
		SWVersion:    device.SWVersion(),
	}
}

func (s *Bridge) sensorRegisterMsg(device model.Device, sensor model.Sensor) model.RegisterMessage {
	msg := model.RegisterMessage{
		Tilda:         s.sensorBase(device.ID, sensor.Slug),
		Name:          fmt.Sprintf("%s %s", device.Name, sensor.Name),
		ID:            fmt.Sprintf("%s_%s", nodeID(device.ID), sensor.Slug),
		StateTopic:    "~/state",
		ValueTemplate: "{{ value_json.value }}",
		DeviceClass:   sensor.DeviceClass,
		Device:        registerDevice(device),
	}
	if !sensor.IsText() {
		msg.UnitOfMeasurement = sensor.Unit
	}
	return msg
}
