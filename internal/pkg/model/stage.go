package model

import "math"

type StageType string

const (
	StageTypePreheat StageType = "preheat"
	StageTypeCook    StageType = "cook"
)

// BulbMode selects which temperature bulb a setpoint targets.
type BulbMode string

const (
	BulbModeDry BulbMode = "dry"
	BulbModeWet BulbMode = "wet"
)

// SteamMode selects how a steam setpoint is expressed.
type SteamMode string

const (
	SteamModePercentage       SteamMode = "steam-percentage"
	SteamModeRelativeHumidity SteamMode = "relative-humidity"
)

type Temperature struct {
	Celsius    float64 `json:"celsius" yaml:"celsius"`
	Fahrenheit float64 `json:"fahrenheit" yaml:"fahrenheit"`
}

// Celsius builds a Temperature with the fahrenheit value rounded to two decimals.
func Celsius(c float64) Temperature {
	return Temperature{
		Celsius:    c,
		Fahrenheit: math.Round((c*9/5+32)*100) / 100,
	}
}

type NumericSetpoint struct {
	Setpoint float64 `json:"setpoint" yaml:"setpoint"`
}

type BulbSetpoint struct {
	Setpoint Temperature `json:"setpoint" yaml:"setpoint"`
}

// TemperatureBulbSetpoint is a tagged variant: Mode names which of Dry or Wet is set.
type TemperatureBulbSetpoint struct {
	Mode BulbMode      `json:"mode" yaml:"mode"`
	Dry  *BulbSetpoint `json:"dry,omitempty" yaml:"dry,omitempty"`
	Wet  *BulbSetpoint `json:"wet,omitempty" yaml:"wet,omitempty"`
}

func DryBulb(t Temperature) TemperatureBulbSetpoint {
	return TemperatureBulbSetpoint{Mode: BulbModeDry, Dry: &BulbSetpoint{Setpoint: t}}
}

func WetBulb(t Temperature) TemperatureBulbSetpoint {
	return TemperatureBulbSetpoint{Mode: BulbModeWet, Wet: &BulbSetpoint{Setpoint: t}}
}

// SteamGeneratorSetpoint is a tagged variant: Mode names which of SteamPercentage or
// RelativeHumidity is set.
type SteamGeneratorSetpoint struct {
	Mode             SteamMode        `json:"mode" yaml:"mode"`
	SteamPercentage  *NumericSetpoint `json:"steamPercentage,omitempty" yaml:"steamPercentage,omitempty"`
	RelativeHumidity *NumericSetpoint `json:"relativeHumidity,omitempty" yaml:"relativeHumidity,omitempty"`
}

func SteamPercentage(p float64) *SteamGeneratorSetpoint {
	return &SteamGeneratorSetpoint{Mode: SteamModePercentage, SteamPercentage: &NumericSetpoint{Setpoint: p}}
}

func RelativeHumidity(p float64) *SteamGeneratorSetpoint {
	return &SteamGeneratorSetpoint{Mode: SteamModeRelativeHumidity, RelativeHumidity: &NumericSetpoint{Setpoint: p}}
}

type HeatingElement struct {
	On     bool     `json:"on" yaml:"on"`
	Failed *bool    `json:"failed,omitempty" yaml:"failed,omitempty"`
	Watts  *float64 `json:"watts,omitempty" yaml:"watts,omitempty"`
}

type HeatingElements struct {
	Top    HeatingElement `json:"top" yaml:"top"`
	Bottom HeatingElement `json:"bottom" yaml:"bottom"`
	Rear   HeatingElement `json:"rear" yaml:"rear"`
}

// Elements is shorthand for the on/off flags of the three heating elements.
func Elements(top, bottom, rear bool) HeatingElements {
	return HeatingElements{
		Top:    HeatingElement{On: top},
		Bottom: HeatingElement{On: bottom},
		Rear:   HeatingElement{On: rear},
	}
}

type Fan struct {
	Speed  int   `json:"speed" yaml:"speed"`
	Failed *bool `json:"failed,omitempty" yaml:"failed,omitempty"`
}

type Vent struct {
	Open bool `json:"open" yaml:"open"`
}

type StageTimer struct {
	Initial int `json:"initial" yaml:"initial"`
}

// Stage is one step of a cook program.
type Stage struct {
	StepType           string                  `json:"stepType,omitempty" yaml:"stepType,omitempty"`
	ID                 string                  `json:"id" yaml:"id"`
	Title              string                  `json:"title" yaml:"title"`
	Description        string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Type               StageType               `json:"type" yaml:"type"`
	UserActionRequired bool                    `json:"userActionRequired" yaml:"userActionRequired"`
	Timer              *StageTimer             `json:"timer,omitempty" yaml:"timer,omitempty"`
	TemperatureBulbs   TemperatureBulbSetpoint `json:"temperatureBulbs" yaml:"temperatureBulbs"`
	HeatingElements    HeatingElements         `json:"heatingElements" yaml:"heatingElements"`
	Fan                Fan                     `json:"fan" yaml:"fan"`
	Vent               Vent                    `json:"vent" yaml:"vent"`
	RackPosition       *int                    `json:"rackPosition,omitempty" yaml:"rackPosition,omitempty"`
	SteamGenerators    *SteamGeneratorSetpoint `json:"steamGenerators,omitempty" yaml:"steamGenerators,omitempty"`
}
