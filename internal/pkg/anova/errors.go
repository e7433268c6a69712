package anova

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

var (
	ErrAuthentication   = errors.New("authentication failed")
	ErrAuthTimeout      = fmt.Errorf("%w: timeout connecting to relay", ErrAuthentication)
	ErrNotAuthenticated = errors.New("session not authenticated")
	ErrDisconnected     = errors.New("relay connection lost")
	ErrCommandTimeout   = errors.New("timeout waiting for command response")
	ErrCommandRejected  = errors.New("command rejected")
	ErrDeviceNotFound   = errors.New("device not found")

	// re-exported so callers of IsCooking need not import model.
	ErrUnknownSteamMode = model.ErrUnknownSteamMode
	ErrUnknownBulbMode  = model.ErrUnknownBulbMode
)

// CommandError carries the relay response of a rejected command.
type CommandError struct {
	RequestID string
	Command   model.Command
	Status    string
	Response  json.RawMessage
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s (%s) failed with status %q", e.RequestID, e.Command, e.Status)
}

func (e *CommandError) Unwrap() error {
	return ErrCommandRejected
}
