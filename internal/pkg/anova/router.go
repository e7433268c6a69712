package anova

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/metrics"
	"github.com/anicoll/anova-integration/internal/pkg/model"
)

// dispatch routes one relay frame. It runs on the read goroutine, so frames are
// handled one at a time in arrival order.
func (s *Service) dispatch(data []byte) {
	frame := model.Frame{}
	if err := json.Unmarshal(data, &frame); err != nil {
		metrics.FramesReceivedTotal.WithLabelValues("malformed").Inc()
		s.logger.Warn("dropping malformed frame", zap.Error(err), zap.ByteString("frame", data))
		return
	}

	switch frame.Command {
	case model.WifiList:
		metrics.FramesReceivedTotal.WithLabelValues(frame.Command.String()).Inc()
		s.handleWifiList(frame)
	case model.State:
		metrics.FramesReceivedTotal.WithLabelValues(frame.Command.String()).Inc()
		s.handleState(frame)
	case model.Response:
		metrics.FramesReceivedTotal.WithLabelValues(frame.Command.String()).Inc()
		s.handleResponse(frame, data)
	default:
		metrics.FramesReceivedTotal.WithLabelValues("unknown").Inc()
		s.logger.Warn("unknown message type received", zap.String("command", frame.Command.String()))
		s.logger.Debug("unknown frame", zap.ByteString("frame", data))
	}
}

// The first discovery list on a connection marks the session authenticated.
func (s *Service) handleWifiList(frame model.Frame) {
	if s.session.Is(stateConnecting) {
		if err := s.session.Event(context.Background(), eventAuthenticate); err != nil {
			s.logger.Error("failed to mark session authenticated", zap.Error(err))
		} else {
			s.mu.Lock()
			authenticated := s.authenticated
			s.mu.Unlock()
			if authenticated != nil {
				close(authenticated)
			}
		}
	}

	entries := []model.WifiListEntry{}
	if err := json.Unmarshal(frame.Payload, &entries); err != nil {
		s.logger.Warn("dropping malformed discovery list", zap.Error(err))
		return
	}
	s.logger.Debug("received discovery list", zap.Int("devices", len(entries)))
	s.registry.SetNames(entries)
}

func (s *Service) handleState(frame model.Frame) {
	payload := model.StatePayload{}
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		s.logger.Warn("dropping malformed state frame", zap.Error(err))
		return
	}
	if payload.CookerID == "" {
		s.logger.Warn("dropping state frame without device id")
		return
	}
	s.logger.Debug("oven state changed",
		zap.String("device_id", payload.CookerID),
		zap.String("mode", string(payload.State.State.Mode)))
	s.registry.Upsert(payload.CookerID, payload.State)
}

func (s *Service) handleResponse(frame model.Frame, raw []byte) {
	payload := model.ResponsePayload{}
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &payload); err != nil {
			s.logger.Warn("response payload is not an object", zap.Error(err), zap.String("request_id", frame.RequestID))
		}
	}
	s.correlator.Resolve(model.CommandResponse{
		Command:   frame.Command,
		RequestID: frame.RequestID,
		Payload:   payload,
		Raw:       raw,
	})
}
