package mqtt

import (
	"errors"
	"sync"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

const (
	DefaultDiscoveryPrefix = "homeassistant"

	publishTimeout = 5 * time.Second
)

var ErrPublishTimeout = errors.New("timed out publishing to broker")

// client is the part of paho_mqtt.Client the bridge uses.
type client interface {
	Connect() paho_mqtt.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho_mqtt.Token
	Subscribe(topic string, qos byte, callback paho_mqtt.MessageHandler) paho_mqtt.Token
}

// Bridge announces ovens to Home Assistant through MQTT discovery and owns their recipe
// switches.
type Bridge struct {
	client  client
	prefix  string
	recipes []model.Recipe
	logger  *zap.Logger
	now     func() time.Time

	pendingWindow time.Duration

	mu                sync.Mutex
	configuredDevices map[string]model.Device
	ovens             map[string]*ovenSwitches
}

// New returns a Home Assistant bridge. Every oven gets one switch per recipe plus the
// built-in power on switch.
func New(client client, prefix string, recipes []model.Recipe, logger *zap.Logger) *Bridge {
	if prefix == "" {
		prefix = DefaultDiscoveryPrefix
	}
	return &Bridge{
		client:            client,
		prefix:            prefix,
		recipes:           append([]model.Recipe{model.PowerOnRecipe()}, recipes...),
		logger:            logger,
		now:               time.Now,
		pendingWindow:     DefaultPendingWindow,
		configuredDevices: make(map[string]model.Device),
		ovens:             make(map[string]*ovenSwitches),
	}
}

func (s *Bridge) Connect() error {
	token := s.client.Connect()
	res := token.WaitTimeout(publishTimeout)
	if err := token.Error(); err != nil {
		return err
	}
	if res {
		return nil
	}
	return errors.New("unable to connect in time")
}

func (s *Bridge) publish(topic string, retained bool, payload []byte) error {
	token := s.client.Publish(topic, 1, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return ErrPublishTimeout
	}
	return token.Error()
}
