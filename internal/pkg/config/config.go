package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

type Config struct {
	AnovaCfg    *AnovaConfig
	MqttCfg     *MqttConfig
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:"0.0.0.0:8000"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`
	RecipesFile string `env:"RECIPES_FILE"`
}

type AnovaConfig struct {
	Email          string        `env:"ANOVA_EMAIL"`
	Password       string        `env:"ANOVA_PASSWORD"`
	APIKey         string        `env:"ANOVA_API_KEY"`
	IdentityURL    string        `env:"ANOVA_IDENTITY_URL" envDefault:"https://identitytoolkit.googleapis.com/v1/accounts:signInWithPassword"`
	RelayURL       string        `env:"ANOVA_RELAY_URL" envDefault:"wss://devices.anovaculinary.io/"`
	Platform       string        `env:"ANOVA_PLATFORM" envDefault:"android"`
	CommandTimeout time.Duration `env:"ANOVA_COMMAND_TIMEOUT" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"ANOVA_CONNECT_TIMEOUT" envDefault:"15s"`
	PingInterval   time.Duration `env:"ANOVA_PING_INTERVAL" envDefault:"30s"`
}

type MqttConfig struct {
	Host            string `env:"MQTT_HOST"`
	Username        string `env:"MQTT_USER"`
	Password        string `env:"MQTT_PASS"`
	ClientID        string `env:"MQTT_CLIENT_ID" envDefault:"anova-integration"`
	DiscoveryPrefix string `env:"MQTT_DISCOVERY_PREFIX" envDefault:"homeassistant"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		AnovaCfg: &AnovaConfig{},
		MqttCfg:  &MqttConfig{},
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings needed to log in to the relay.
func (c *AnovaConfig) Validate() error {
	switch {
	case c.Email == "":
		return fmt.Errorf("%w: ANOVA_EMAIL", ErrMissingSetting)
	case c.Password == "":
		return fmt.Errorf("%w: ANOVA_PASSWORD", ErrMissingSetting)
	case c.APIKey == "":
		return fmt.Errorf("%w: ANOVA_API_KEY", ErrMissingSetting)
	}
	return nil
}

type recipesFile struct {
	Recipes []model.Recipe `yaml:"recipes"`
}

// LoadRecipes reads the recipes file. An empty path yields no recipes.
func LoadRecipes(path string) ([]model.Recipe, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	file := recipesFile{}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing recipes %s: %w", path, err)
	}
	for i, r := range file.Recipes {
		if r.Name == "" {
			return nil, fmt.Errorf("%w: recipe %d has no name", ErrInvalidRecipe, i)
		}
		if len(r.Stages) == 0 {
			return nil, fmt.Errorf("%w: recipe %q has no stages", ErrInvalidRecipe, r.Name)
		}
	}
	return file.Recipes, nil
}
