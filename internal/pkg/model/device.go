package model

import (
	"fmt"
	"time"
)

const (
	Manufacturer = "Anova Culinary"
	OvenModel    = "Precision Oven"
)

// Device is the host-facing description of one oven.
type Device struct {
	ID              string
	Name            string
	FirmwareVersion string
	HardwareVersion string
}

func (d Device) SWVersion() string {
	return fmt.Sprintf("FW: %s, HW: %s", d.FirmwareVersion, d.HardwareVersion)
}

// Sensor describes one value derived from an oven snapshot.
type Sensor struct {
	Slug        string
	Name        string
	Unit        string
	DeviceClass string
}

func (s Sensor) IsText() bool {
	return s.Unit == ""
}

type Sensors []Sensor

func (s Sensors) HasSlug(slug string) bool {
	for _, sensor := range s {
		if sensor.Slug == slug {
			return true
		}
	}
	return false
}

var OvenSensors = Sensors{
	{Slug: "mode", Name: "Mode"},
	{Slug: "dry_bulb_temperature", Name: "Dry Bulb Temperature", Unit: "°C", DeviceClass: "temperature"},
	{Slug: "dry_bulb_setpoint", Name: "Dry Bulb Setpoint", Unit: "°C", DeviceClass: "temperature"},
	{Slug: "wet_bulb_temperature", Name: "Wet Bulb Temperature", Unit: "°C", DeviceClass: "temperature"},
	{Slug: "relative_humidity", Name: "Relative Humidity", Unit: "%", DeviceClass: "humidity"},
	{Slug: "fan_speed", Name: "Fan Speed", Unit: "%"},
	{Slug: "timer_initial", Name: "Timer Initial", Unit: "s", DeviceClass: "duration"},
	{Slug: "timer_current", Name: "Timer Current", Unit: "s", DeviceClass: "duration"},
	{Slug: "door", Name: "Door"},
	{Slug: "water_tank", Name: "Water Tank"},
	{Slug: "probe", Name: "Probe"},
	{Slug: "cook_stages", Name: "Cook Stages"},
}

// Reading is the current value of one sensor of one oven.
type Reading struct {
	DeviceID  string
	Sensor    Sensor
	Value     string
	Timestamp time.Time
}
