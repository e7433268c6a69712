package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/anicoll/anova-integration/internal/pkg/anova"
	"github.com/anicoll/anova-integration/internal/pkg/model"
)

var errBadRequest = errors.New("bad request")

// Oven is what the API needs from an oven.
type Oven interface {
	ID() string
	Device() model.Device
	State() model.OvenState
	IsOn() bool
	StartCook(ctx context.Context, stages []model.Stage) (string, error)
	StopCook(ctx context.Context) error
	MakeToast(ctx context.Context) (string, error)
}

// Server is the local control API.
type Server struct {
	ovens   func() []Oven
	recipes []model.Recipe
	logger  *zap.Logger
}

// New returns the local control API. The built-in power on recipe is always available.
func New(ovens func() []Oven, recipes []model.Recipe, logger *zap.Logger) *Server {
	return &Server{
		ovens:   ovens,
		recipes: append([]model.Recipe{model.PowerOnRecipe()}, recipes...),
		logger:  logger,
	}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(LoggingMiddleware(s.logger))
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/recipes", s.GetRecipes).Methods(http.MethodGet)
	r.HandleFunc("/devices", s.GetDevices).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}", s.GetDevice).Methods(http.MethodGet)
	r.HandleFunc("/devices/{id}/cook", s.PostCook).Methods(http.MethodPost)
	r.HandleFunc("/devices/{id}/cook", s.DeleteCook).Methods(http.MethodDelete)
	r.HandleFunc("/devices/{id}/toast", s.PostToast).Methods(http.MethodPost)
	return r
}

func (s *Server) GetRecipes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(s.recipes, func(r model.Recipe, _ int) recipeResponse {
		return recipeResponse{Name: r.Name, Schedule: r.Schedule, Device: r.Device, Stages: len(r.Stages)}
	}))
}

func (s *Server) GetDevices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, lo.Map(s.ovens(), func(o Oven, _ int) deviceResponse {
		return toDeviceResponse(o)
	}))
}

func (s *Server) GetDevice(w http.ResponseWriter, r *http.Request) {
	oven, err := s.oven(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	state := oven.State()
	writeJSON(w, http.StatusOK, deviceDetailResponse{deviceResponse: toDeviceResponse(oven), State: state})
}

func (s *Server) PostCook(w http.ResponseWriter, r *http.Request) {
	oven, err := s.oven(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	req, err := unmarshalPayload[cookRequest](r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	stages, err := s.stagesFor(req)
	if err != nil {
		s.handleError(w, err)
		return
	}
	cookID, err := oven.StartCook(r.Context(), stages)
	if err != nil {
		s.handleError(w, err)
		return
	}
	s.logger.Info("cook started", zap.String("device_id", oven.ID()), zap.String("cook_id", cookID), zap.String("recipe", req.Recipe))
	writeJSON(w, http.StatusOK, cookResponse{CookID: cookID})
}

func (s *Server) DeleteCook(w http.ResponseWriter, r *http.Request) {
	oven, err := s.oven(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	if err := oven.StopCook(r.Context()); err != nil {
		s.handleError(w, err)
		return
	}
	s.logger.Info("cook stopped", zap.String("device_id", oven.ID()))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) PostToast(w http.ResponseWriter, r *http.Request) {
	oven, err := s.oven(r)
	if err != nil {
		s.handleError(w, err)
		return
	}
	cookID, err := oven.MakeToast(r.Context())
	if err != nil {
		s.handleError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cookResponse{CookID: cookID})
}

func (s *Server) oven(r *http.Request) (Oven, error) {
	id := mux.Vars(r)["id"]
	oven, ok := lo.Find(s.ovens(), func(o Oven) bool { return o.ID() == id })
	if !ok {
		return nil, fmt.Errorf("%w: %s", anova.ErrDeviceNotFound, id)
	}
	return oven, nil
}

func (s *Server) stagesFor(req *cookRequest) ([]model.Stage, error) {
	switch {
	case req.Recipe != "" && len(req.Stages) > 0:
		return nil, fmt.Errorf("%w: recipe and stages are mutually exclusive", errBadRequest)
	case req.Recipe != "":
		recipe, ok := lo.Find(s.recipes, func(r model.Recipe) bool { return r.Name == req.Recipe })
		if !ok {
			return nil, fmt.Errorf("%w: unknown recipe %q", errBadRequest, req.Recipe)
		}
		return recipe.Stages, nil
	case len(req.Stages) > 0:
		return req.Stages, nil
	}
	return nil, fmt.Errorf("%w: recipe or stages required", errBadRequest)
}

func (s *Server) handleError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, anova.ErrDeviceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, anova.ErrNotAuthenticated):
		status = http.StatusServiceUnavailable
	case errors.Is(err, anova.ErrCommandTimeout):
		status = http.StatusGatewayTimeout
	case errors.Is(err, anova.ErrCommandRejected):
		status = http.StatusBadGateway
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err), zap.Int("status", status))
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func unmarshalPayload[T any](r *http.Request) (*T, error) {
	var out T
	if err := json.NewDecoder(r.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s", errBadRequest, err)
	}
	return &out, nil
}
