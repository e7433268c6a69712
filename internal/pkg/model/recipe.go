package model

// Recipe is a named cook program a host can start by name.
type Recipe struct {
	Name     string  `json:"name" yaml:"name"`
	Stages   []Stage `json:"stages" yaml:"stages"`
	Schedule string  `json:"schedule,omitempty" yaml:"schedule,omitempty"` // cron spec, optional.
	Device   string  `json:"device,omitempty" yaml:"device,omitempty"`     // cooker id, empty for every oven.
}

const PowerOnRecipeName = "Power On"

// ToastStages is the fixed toast program: sear under the top element, steam, then cool down.
// Stage ids are left empty and assigned when the cook is started.
func ToastStages() []Stage {
	return []Stage{
		{
			Title:              "Start Cook",
			Type:               StageTypeCook,
			UserActionRequired: true,
			TemperatureBulbs:   DryBulb(Celsius(250)),
			Timer:              &StageTimer{Initial: 180},
			HeatingElements:    Elements(true, false, false),
			Fan:                Fan{Speed: 0},
			Vent:               Vent{Open: false},
		},
		{
			Title:            "Add Steam",
			Type:             StageTypeCook,
			TemperatureBulbs: DryBulb(Celsius(250)),
			SteamGenerators:  SteamPercentage(100),
			Timer:            &StageTimer{Initial: 240},
			HeatingElements:  Elements(false, false, true),
			Fan:              Fan{Speed: 100},
			Vent:             Vent{Open: false},
		},
		{
			Title:            "Cool Down",
			Type:             StageTypeCook,
			TemperatureBulbs: DryBulb(Celsius(25)),
			Timer:            &StageTimer{Initial: 60},
			HeatingElements:  Elements(false, true, false),
			Fan:              Fan{Speed: 0},
			Vent:             Vent{Open: false},
		},
	}
}

// PowerOnStages preheats to 350F on the bottom element and keeps baking.
func PowerOnStages() []Stage {
	setpoint := Temperature{Celsius: 176.67, Fahrenheit: 350}
	return []Stage{
		{
			Title:            "Pre-heat",
			Type:             StageTypePreheat,
			TemperatureBulbs: DryBulb(setpoint),
			HeatingElements:  Elements(false, true, false),
			Fan:              Fan{Speed: 33},
			Vent:             Vent{Open: false},
		},
		{
			Title:            "Bake",
			Type:             StageTypeCook,
			TemperatureBulbs: DryBulb(setpoint),
			HeatingElements:  Elements(false, true, false),
			Fan:              Fan{Speed: 33},
			Vent:             Vent{Open: false},
		},
	}
}

func PowerOnRecipe() Recipe {
	return Recipe{Name: PowerOnRecipeName, Stages: PowerOnStages()}
}
