package model

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSteamMode = errors.New("unknown steam mode")
	ErrUnknownBulbMode  = errors.New("unknown temperature bulb mode")
)

func numericSetpointsEqual(a, b *NumericSetpoint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Setpoint == b.Setpoint
}

// SteamGeneratorsEqual reports whether two steam setpoints request the same steam.
// An unrecognised mode shared by both sides is an error, as the comparison cannot be trusted.
func SteamGeneratorsEqual(a, b *SteamGeneratorSetpoint) (bool, error) {
	if a == nil && b == nil {
		return true, nil
	}
	if a == nil || b == nil {
		return false, nil
	}
	if a.Mode != b.Mode {
		return false, nil
	}
	switch a.Mode {
	case SteamModePercentage:
		return numericSetpointsEqual(a.SteamPercentage, b.SteamPercentage), nil
	case SteamModeRelativeHumidity:
		return numericSetpointsEqual(a.RelativeHumidity, b.RelativeHumidity), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownSteamMode, a.Mode)
	}
}

func bulbSetpointsEqual(a, b *BulbSetpoint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Setpoint.Celsius == b.Setpoint.Celsius
}

// TemperatureBulbsEqual compares the celsius setpoint of the selected bulb.
func TemperatureBulbsEqual(a, b TemperatureBulbSetpoint) (bool, error) {
	if a.Mode != b.Mode {
		return false, nil
	}
	switch a.Mode {
	case BulbModeDry:
		return bulbSetpointsEqual(a.Dry, b.Dry), nil
	case BulbModeWet:
		return bulbSetpointsEqual(a.Wet, b.Wet), nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownBulbMode, a.Mode)
	}
}

// StagesEqual compares the settings of two stages, ignoring ids, titles and timers.
func StagesEqual(a, b Stage) (bool, error) {
	if a.Fan.Speed != b.Fan.Speed ||
		a.HeatingElements.Top.On != b.HeatingElements.Top.On ||
		a.HeatingElements.Bottom.On != b.HeatingElements.Bottom.On ||
		a.HeatingElements.Rear.On != b.HeatingElements.Rear.On ||
		a.Vent.Open != b.Vent.Open {
		return false, nil
	}
	steamEqual, err := SteamGeneratorsEqual(a.SteamGenerators, b.SteamGenerators)
	if err != nil || !steamEqual {
		return false, err
	}
	return TemperatureBulbsEqual(a.TemperatureBulbs, b.TemperatureBulbs)
}

// StageListsEqual compares two programs position by position.
func StageListsEqual(a, b []Stage) (bool, error) {
	if len(a) != len(b) {
		return false, nil
	}
	for i := range a {
		equal, err := StagesEqual(a[i], b[i])
		if err != nil {
			return false, fmt.Errorf("stage %d: %w", i, err)
		}
		if !equal {
			return false, nil
		}
	}
	return true, nil
}
