package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gosuri/uitable"
	"github.com/samber/lo"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/anova"
)

const (
	discoveryWait = 10 * time.Second
	pollInterval  = 200 * time.Millisecond
)

// DevicesCommand lists the ovens on the account.
func DevicesCommand(ctx *cli.Context) error {
	return withOvens(ctx, func(ovens []*anova.Oven, _ *zap.Logger) error {
		printDevices(ctx.App.Writer, ovens)
		return nil
	})
}

// ToastCommand starts the toast program on the selected ovens.
func ToastCommand(ctx *cli.Context) error {
	return withOvens(ctx, func(ovens []*anova.Oven, logger *zap.Logger) error {
		for _, oven := range ovens {
			cookID, err := oven.MakeToast(ctx.Context)
			if err != nil {
				return fmt.Errorf("oven %s: %w", oven.ID(), err)
			}
			logger.Info("toast started", zap.String("device_id", oven.ID()), zap.String("cook_id", cookID))
		}
		return nil
	})
}

// StopCommand stops the active cook on the selected ovens.
func StopCommand(ctx *cli.Context) error {
	return withOvens(ctx, func(ovens []*anova.Oven, logger *zap.Logger) error {
		for _, oven := range ovens {
			if err := oven.StopCook(ctx.Context); err != nil {
				return fmt.Errorf("oven %s: %w", oven.ID(), err)
			}
			logger.Info("cook stopped", zap.String("device_id", oven.ID()))
		}
		return nil
	})
}

func withOvens(ctx *cli.Context, fn func([]*anova.Oven, *zap.Logger) error) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	svc := anova.New(cfg.AnovaCfg, logger)
	if err := svc.Login(ctx.Context); err != nil {
		return err
	}
	defer svc.Close()

	ovens, err := awaitOvens(ctx.Context, svc.Ovens, ctx.String("device"), discoveryWait)
	if err != nil {
		return err
	}
	return fn(ovens, logger)
}

// awaitOvens polls until an oven is known, or the named one when device is set.
// Every known oven is returned when device is empty.
func awaitOvens(ctx context.Context, list func() []*anova.Oven, device string, wait time.Duration) ([]*anova.Oven, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ovens := lo.Filter(list(), func(o *anova.Oven, _ int) bool {
			return device == "" || o.ID() == device
		})
		if len(ovens) > 0 {
			return ovens, nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			if device != "" {
				return nil, fmt.Errorf("%w: %s", anova.ErrDeviceNotFound, device)
			}
			return nil, anova.ErrDeviceNotFound
		}
	}
}

func printDevices(w io.Writer, ovens []*anova.Oven) {
	table := uitable.New()
	table.MaxColWidth = 40
	table.AddRow("ID", "NAME", "MODE", "COOK", "FIRMWARE")
	for _, oven := range ovens {
		state := oven.State()
		cook := "-"
		if state.Cook != nil {
			cook = state.Cook.CookID
		}
		table.AddRow(oven.ID(), oven.Name(), state.State.Mode, cook, oven.Device().SWVersion())
	}
	fmt.Fprintln(w, table)
}
