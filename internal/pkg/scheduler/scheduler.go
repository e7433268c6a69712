package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gosimple/slug"
	"github.com/robfig/cron/v3"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/metrics"
	"github.com/anicoll/anova-integration/internal/pkg/model"
)

const startTimeout = 30 * time.Second

var ErrNoOvens = errors.New("no oven to start the recipe on")

// Cooker is an oven a recipe can be started on.
type Cooker interface {
	ID() string
	StartCook(ctx context.Context, stages []model.Stage) (string, error)
}

// Scheduler starts recipes that carry a cron schedule.
type Scheduler struct {
	cron    *cron.Cron
	cookers func() []Cooker
	logger  *zap.Logger
}

func New(cookers func() []Cooker, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLogger{logger.Sugar()})),
		cookers: cookers,
		logger:  logger,
	}
}

// AddRecipes schedules every recipe with a schedule and returns how many were added.
func (s *Scheduler) AddRecipes(recipes []model.Recipe) (int, error) {
	added := 0
	for _, r := range recipes {
		if r.Schedule == "" {
			continue
		}
		recipe := r
		if _, err := s.cron.AddFunc(recipe.Schedule, func() {
			if err := s.RunRecipe(context.Background(), recipe); err != nil {
				s.logger.Error("scheduled recipe failed", zap.Error(err), zap.String("recipe", recipe.Name))
			}
		}); err != nil {
			return added, fmt.Errorf("scheduling recipe %q: %w", recipe.Name, err)
		}
		s.logger.Info("scheduled recipe", zap.String("recipe", recipe.Name), zap.String("schedule", recipe.Schedule))
		added++
	}
	return added, nil
}

// RunRecipe starts the recipe on its oven, or on every oven when it names none.
func (s *Scheduler) RunRecipe(ctx context.Context, recipe model.Recipe) error {
	targets := lo.Filter(s.cookers(), func(c Cooker, _ int) bool {
		return recipe.Device == "" || recipe.Device == c.ID()
	})
	name := slug.Make(recipe.Name)
	if len(targets) == 0 {
		metrics.ScheduledRunsTotal.WithLabelValues(name, "error").Inc()
		return ErrNoOvens
	}

	ctx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	var errs []error
	for _, c := range targets {
		cookID, err := c.StartCook(ctx, recipe.Stages)
		if err != nil {
			metrics.ScheduledRunsTotal.WithLabelValues(name, "error").Inc()
			errs = append(errs, fmt.Errorf("oven %s: %w", c.ID(), err))
			continue
		}
		metrics.ScheduledRunsTotal.WithLabelValues(name, "ok").Inc()
		s.logger.Info("started scheduled recipe",
			zap.String("recipe", recipe.Name),
			zap.String("device_id", c.ID()),
			zap.String("cook_id", cookID))
	}
	return errors.Join(errs...)
}

// Run starts the schedule and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	return ctx.Err()
}

type cronLogger struct {
	logger *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Errorw(msg, append(keysAndValues, "error", err)...)
}
