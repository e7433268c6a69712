package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	paho_mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/anicoll/anova-integration/internal/pkg/anova"
	"github.com/anicoll/anova-integration/internal/pkg/config"
	"github.com/anicoll/anova-integration/internal/pkg/model"
	"github.com/anicoll/anova-integration/internal/pkg/mqtt"
	"github.com/anicoll/anova-integration/internal/pkg/publisher"
	"github.com/anicoll/anova-integration/internal/pkg/scheduler"
	"github.com/anicoll/anova-integration/internal/pkg/server"
)

const (
	shutdownTimeout = 5 * time.Second
	mqttKeepAlive   = 60 * time.Second
)

var reconnectDelay = 5 * time.Second

// ServeCommand logs in to the relay and runs every host integration until interrupted.
func ServeCommand(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync() // flushes buffer, if any.
	}()

	recipes, err := config.LoadRecipes(cfg.RecipesFile)
	if err != nil {
		return err
	}

	var bridge Bridge
	if cfg.MqttCfg.Host != "" {
		b := mqtt.New(paho_mqtt.NewClient(mqttOptions(cfg.MqttCfg)), cfg.MqttCfg.DiscoveryPrefix, recipes, logger)
		if err := b.Connect(); err != nil {
			return fmt.Errorf("connecting to mqtt broker: %w", err)
		}
		bridge = b
	}

	return run(ctx.Context, cfg, anova.New(cfg.AnovaCfg, logger), bridge, recipes, logger)
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = ctx.String("log-level")
	cfg.RecipesFile = ctx.String("recipes")
	cfg.HTTPAddr = ctx.String("http-addr")
	if err := cfg.AnovaCfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(level string) (*zap.Logger, error) {
	var err error
	logCfg := zap.NewProductionConfig()
	logCfg.Level, err = zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	logCfg.OutputPaths = []string{"stdout"}
	logCfg.ErrorOutputPaths = []string{"stdout"}
	logCfg.Sampling = nil
	return logCfg.Build(zap.AddCaller(), zap.AddStacktrace(zap.ErrorLevel))
}

func mqttOptions(cfg *config.MqttConfig) *paho_mqtt.ClientOptions {
	opts := paho_mqtt.NewClientOptions()
	opts.AddBroker(cfg.Host)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(mqttKeepAlive)
	return opts
}

func run(ctx context.Context, cfg *config.Config, svc AnovaService, bridge Bridge, recipes []model.Recipe, logger *zap.Logger) error {
	eg, ctx := errgroup.WithContext(ctx)

	pub := publisher.New(logger)
	if bridge != nil {
		if err := pub.Register("mqtt", bridge); err != nil {
			return err
		}
	}

	svc.OnDeviceDiscovered(func(oven *anova.Oven) {
		ovenSync := newOvenSync(oven, pub, bridge, logger)
		oven.OnEvent(ovenSync.handle)
		eg.Go(func() error {
			return ovenSync.run(ctx)
		})
	})
	svc.OnCommandOutcome(func(o anova.CommandOutcome) {
		logger.Debug("command settled",
			zap.String("request_id", o.RequestID),
			zap.String("command", string(o.Command)),
			zap.String("device_id", o.DeviceID),
			zap.Error(o.Err))
	})

	sched := scheduler.New(func() []scheduler.Cooker {
		return lo.Map(svc.Ovens(), func(o *anova.Oven, _ int) scheduler.Cooker { return o })
	}, logger)
	if _, err := sched.AddRecipes(recipes); err != nil {
		return err
	}
	eg.Go(func() error {
		return sched.Run(ctx)
	})

	eg.Go(func() error {
		for {
			if err := svc.Login(ctx); err != nil {
				return err
			}
			logger.Info("logged in to relay", zap.Int("ovens", len(svc.Ovens())))

			select {
			case err := <-svc.Disconnected():
				logger.Error("relay session lost, logging in again", zap.Error(err), zap.Duration("delay", reconnectDelay))
			case <-ctx.Done():
				_ = svc.Close()
				return ctx.Err()
			}
			select {
			case <-time.After(reconnectDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	srv := &http.Server{
		Handler: server.New(func() []server.Oven {
			return lo.Map(svc.Ovens(), func(o *anova.Oven, _ int) server.Oven { return o })
		}, recipes, logger).Router(),
		Addr:         cfg.HTTPAddr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	eg.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
