package model

// Mode is the oven operating mode reported in every snapshot.
type Mode string

const (
	ModeIdle Mode = "idle"
	ModeCook Mode = "cook"
)

// OvenState is one full point-in-time report of an oven.
type OvenState struct {
	Version          int        `json:"version"`
	UpdatedTimestamp string     `json:"updatedTimestamp"`
	SystemInfo       SystemInfo `json:"systemInfo"`
	State            Status     `json:"state"`
	Nodes            Nodes      `json:"nodes"`
	Cook             *Cook      `json:"cook,omitempty"`
}

// Cook describes the program the oven is currently running.
type Cook struct {
	CookID string  `json:"cookId"`
	Stages []Stage `json:"stages"`
}

type SystemInfo struct {
	Online                    bool    `json:"online"`
	HardwareVersion           string  `json:"hardwareVersion"`
	PowerMains                float64 `json:"powerMains"`
	PowerHertz                float64 `json:"powerHertz"`
	FirmwareVersion           string  `json:"firmwareVersion"`
	UIHardwareVersion         string  `json:"uiHardwareVersion"`
	UIFirmwareVersion         string  `json:"uiFirmwareVersion"`
	FirmwareUpdatedTimestamp  string  `json:"firmwareUpdatedTimestamp"`
	LastConnectedTimestamp    string  `json:"lastConnectedTimestamp"`
	LastDisconnectedTimestamp string  `json:"lastDisconnectedTimestamp"`
	TriacsFailed              bool    `json:"triacsFailed"`
}

type Status struct {
	Mode                Mode     `json:"mode"`
	TemperatureUnit     string   `json:"temperatureUnit"`
	ProcessedCommandIDs []string `json:"processedCommandIds,omitempty"`
}

type Nodes struct {
	TemperatureBulbs     TemperatureBulbsStatus `json:"temperatureBulbs"`
	Timer                TimerStatus            `json:"timer"`
	TemperatureProbe     TemperatureProbe       `json:"temperatureProbe"`
	SteamGenerators      SteamGeneratorsStatus  `json:"steamGenerators"`
	HeatingElements      HeatingElements        `json:"heatingElements"`
	Fan                  Fan                    `json:"fan"`
	Vent                 Vent                   `json:"vent"`
	WaterTank            WaterTank              `json:"waterTank"`
	Door                 Door                   `json:"door"`
	Lamp                 Lamp                   `json:"lamp"`
	UserInterfaceCircuit UserInterfaceCircuit   `json:"userInterfaceCircuit"`
}

type TemperatureBulbsStatus struct {
	Mode      BulbMode      `json:"mode"`
	Wet       WetBulbStatus `json:"wet"`
	Dry       DryBulbStatus `json:"dry"`
	DryTop    DryEdgeStatus `json:"dryTop"`
	DryBottom DryEdgeStatus `json:"dryBottom"`
}

type WetBulbStatus struct {
	Current    Temperature  `json:"current"`
	Setpoint   *Temperature `json:"setpoint,omitempty"`
	Dosed      bool         `json:"dosed"`
	DoseFailed bool         `json:"doseFailed"`
}

type DryBulbStatus struct {
	Current  Temperature  `json:"current"`
	Setpoint *Temperature `json:"setpoint,omitempty"`
}

type DryEdgeStatus struct {
	Current    Temperature `json:"current"`
	Overheated bool        `json:"overheated"`
}

type TimerStatus struct {
	Mode    string `json:"mode"`
	Initial int    `json:"initial"`
	Current int    `json:"current"`
}

type TemperatureProbe struct {
	Connected bool `json:"connected"`
}

type SteamGeneratorsStatus struct {
	Mode             SteamMode        `json:"mode"`
	RelativeHumidity *HumidityReading `json:"relativeHumidity,omitempty"`
	Evaporator       *Evaporator      `json:"evaporator,omitempty"`
	Boiler           *Boiler          `json:"boiler,omitempty"`
	SteamPercentage  *NumericSetpoint `json:"steamPercentage,omitempty"`
}

type HumidityReading struct {
	Current  *float64 `json:"current,omitempty"`
	Setpoint float64  `json:"setpoint"`
}

type Evaporator struct {
	Failed     bool    `json:"failed"`
	Overheated bool    `json:"overheated"`
	Celsius    float64 `json:"celsius"`
	Watts      float64 `json:"watts"`
}

type Boiler struct {
	DescaleRequired bool    `json:"descaleRequired"`
	Failed          bool    `json:"failed"`
	Overheated      bool    `json:"overheated"`
	Celsius         float64 `json:"celsius"`
	Watts           float64 `json:"watts"`
	Dosed           bool    `json:"dosed"`
}

type WaterTank struct {
	Empty bool `json:"empty"`
}

type Door struct {
	Closed bool `json:"closed"`
}

type Lamp struct {
	On         bool   `json:"on"`
	Failed     bool   `json:"failed"`
	Preference string `json:"preference"`
}

type UserInterfaceCircuit struct {
	CommunicationFailed bool `json:"communicationFailed"`
}
