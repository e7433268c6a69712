package anova

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/metrics"
	"github.com/anicoll/anova-integration/internal/pkg/model"
)

const DefaultCommandTimeout = 5 * time.Second

const (
	outcomeOK        = "ok"
	outcomeRejected  = "rejected"
	outcomeTimeout   = "timeout"
	outcomeCancelled = "cancelled"
)

type pendingCommand struct {
	requestID string
	command   model.Command
	deviceID  string
	sentAt    time.Time
	timer     *time.Timer
	result    chan error
}

// Correlator matches RESPONSE frames to the commands waiting on them.
// An entry is settled by whoever removes it from the table first.
type Correlator struct {
	logger  *zap.Logger
	timeout time.Duration
	write   func([]byte) error

	mu      sync.Mutex
	pending map[string]*pendingCommand

	handlersMu sync.RWMutex
	handlers   []OutcomeHandler
}

func NewCorrelator(write func([]byte) error, timeout time.Duration, logger *zap.Logger) *Correlator {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &Correlator{
		logger:  logger,
		timeout: timeout,
		write:   write,
		pending: make(map[string]*pendingCommand),
	}
}

// OnOutcome registers a handler called once for every settled command.
func (c *Correlator) OnOutcome(h OutcomeHandler) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Pending returns the number of commands awaiting a response.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Send writes the command and blocks until it is acknowledged, rejected, timed out or
// ctx is done.
func (c *Correlator) Send(ctx context.Context, deviceID string, command model.Command, payload any) error {
	requestID := uuid.NewString()
	data, err := json.Marshal(model.Envelope{
		Command:   command,
		Payload:   payload,
		RequestID: requestID,
	})
	if err != nil {
		return fmt.Errorf("encoding %s: %w", command, err)
	}

	p := &pendingCommand{
		requestID: requestID,
		command:   command,
		deviceID:  deviceID,
		sentAt:    time.Now(),
		result:    make(chan error, 1),
	}
	c.mu.Lock()
	c.pending[requestID] = p
	p.timer = time.AfterFunc(c.timeout, func() {
		c.settle(requestID, fmt.Errorf("%w: %s %s", ErrCommandTimeout, command, requestID), outcomeTimeout)
	})
	c.mu.Unlock()
	metrics.PendingCommands.Inc()

	c.logger.Info("sending command",
		zap.String("command", command.String()),
		zap.String("request_id", requestID),
		zap.String("device_id", deviceID))
	if err := c.write(data); err != nil {
		c.logger.Error("failed to write command",
			zap.Error(err),
			zap.String("command", command.String()),
			zap.String("request_id", requestID))
	}

	select {
	case err := <-p.result:
		return err
	case <-ctx.Done():
		c.settle(requestID, ctx.Err(), outcomeCancelled)
		// result is buffered, so this only waits if another path won the race.
		return <-p.result
	}
}

// Resolve settles the pending command the response belongs to. It reports false for
// responses with no pending command.
func (c *Correlator) Resolve(resp model.CommandResponse) bool {
	var err error
	outcome := outcomeOK
	if resp.Payload.Status != model.StatusOK {
		outcome = outcomeRejected
		err = &CommandError{
			RequestID: resp.RequestID,
			Status:    resp.Payload.Status,
			Response:  resp.Raw,
		}
	}
	if !c.settle(resp.RequestID, err, outcome) {
		c.logger.Debug("ignoring response with no pending command",
			zap.String("request_id", resp.RequestID),
			zap.String("status", resp.Payload.Status))
		return false
	}
	return true
}

func (c *Correlator) settle(requestID string, err error, outcome string) bool {
	c.mu.Lock()
	p, ok := c.pending[requestID]
	if ok {
		delete(c.pending, requestID)
	}
	c.mu.Unlock()
	if !ok {
		return false
	}
	p.timer.Stop()

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		cmdErr.Command = p.command
	}

	elapsed := time.Since(p.sentAt)
	metrics.PendingCommands.Dec()
	metrics.CommandsTotal.WithLabelValues(p.command.String(), outcome).Inc()
	metrics.CommandLatency.WithLabelValues(p.command.String()).Observe(elapsed.Seconds())

	fields := []zap.Field{
		zap.String("command", p.command.String()),
		zap.String("request_id", requestID),
		zap.String("device_id", p.deviceID),
		zap.Duration("elapsed", elapsed),
	}
	switch outcome {
	case outcomeOK:
		c.logger.Debug("command acknowledged", fields...)
	case outcomeRejected:
		c.logger.Error("command rejected", append(fields, zap.ByteString("response", cmdErr.Response))...)
	default:
		c.logger.Warn("command failed", append(fields, zap.Error(err))...)
	}

	p.result <- err

	c.handlersMu.RLock()
	handlers := append([]OutcomeHandler(nil), c.handlers...)
	c.handlersMu.RUnlock()
	for _, h := range handlers {
		h(CommandOutcome{
			RequestID: requestID,
			Command:   p.command,
			DeviceID:  p.deviceID,
			Err:       err,
		})
	}
	return true
}
