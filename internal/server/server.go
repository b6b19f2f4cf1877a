package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/copyleftdev/flashrbf/internal/config"
	apperrors "github.com/copyleftdev/flashrbf/internal/errors"
	"github.com/copyleftdev/flashrbf/internal/interpolation"
	"github.com/copyleftdev/flashrbf/internal/interpolation/kernels"
	"github.com/copyleftdev/flashrbf/internal/interpolation/rbf"
	"github.com/copyleftdev/flashrbf/internal/logging"
)

// Logger defines the logging interface used by the server
type Logger interface {
	Debug(msg string, fields ...map[string]interface{})
	Info(msg string, fields ...map[string]interface{})
	Warn(msg string, fields ...map[string]interface{})
	Error(msg string, fields ...map[string]interface{})
	Fatal(msg string, fields ...map[string]interface{})
	WithFields(fields map[string]interface{}) *logging.Logger
}

// modelEntry is a registered model. The model itself is not safe for
// concurrent use, so every access goes through mu.
type modelEntry struct {
	id        string
	mu        sync.RWMutex
	model     *rbf.Model
	createdAt time.Time
	updatedAt time.Time
}

// Server exposes interpolation models over REST and JSON-RPC.
type Server struct {
	cfg    *config.Config
	logger Logger

	models   map[string]*modelEntry
	modelsMu sync.RWMutex // Protects the models map

	seq atomic.Uint64
}

// NewServer creates a new server instance with the given config and logger
func NewServer(cfg *config.Config, logger Logger) *Server {
	return &Server{
		cfg:    cfg,
		logger: logger,
		models: make(map[string]*modelEntry),
	}
}

func (s *Server) RegisterRoutes(r chi.Router) {
	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/models", s.handleCreate)
		r.Route("/models/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Delete("/", s.handleDelete)
			r.Post("/predict", s.handlePredict)
			r.Post("/update", s.handleUpdate)
			r.Post("/calibrate", s.handleCalibrate)
		})
	})

	// JSON-RPC 2.0 endpoint
	r.Post("/rpc", s.handleJSONRPC)
}

// CreateRequest holds a training set and optional model settings.
type CreateRequest struct {
	Points    [][]float64 `json:"points"`
	Outputs   []float64   `json:"outputs"`
	Kernel    string      `json:"kernel,omitempty"`
	Bandwidth *float64    `json:"bandwidth,omitempty"`
}

// PredictRequest holds query points.
type PredictRequest struct {
	Points [][]float64 `json:"points"`
}

// PredictResponse holds one output per query point.
type PredictResponse struct {
	Outputs []float64 `json:"outputs"`
}

// ObservationRequest holds observations for update and calibrate.
type ObservationRequest struct {
	Points  [][]float64 `json:"points"`
	Outputs []float64   `json:"outputs"`
	// Refit recomputes the weights after calibration.
	Refit bool `json:"refit,omitempty"`
}

// ModelDescription summarizes a registered model.
type ModelDescription struct {
	ModelID   string         `json:"model_id"`
	Kernel    kernels.Kernel `json:"kernel"`
	Bandwidth float64        `json:"bandwidth"`
	Size      int            `json:"size"`
	Dimension int            `json:"dimension"`
	State     string         `json:"state"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (e *modelEntry) describe() *ModelDescription {
	return &ModelDescription{
		ModelID:   e.id,
		Kernel:    e.model.Kernel(),
		Bandwidth: e.model.Bandwidth(),
		Size:      e.model.Len(),
		Dimension: e.model.Dim(),
		State:     e.model.State().String(),
		CreatedAt: e.createdAt,
		UpdatedAt: e.updatedAt,
	}
}

// lookup returns the entry for id or a not found error.
func (s *Server) lookup(id string) (*modelEntry, error) {
	if id == "" {
		return nil, apperrors.BadRequestf("model_id is required")
	}

	s.modelsMu.RLock()
	defer s.modelsMu.RUnlock()

	entry, ok := s.models[id]
	if !ok {
		return nil, apperrors.NotFound(id)
	}
	return entry, nil
}

// createModel fits and registers a new model.
func (s *Server) createModel(req CreateRequest) (result *ModelDescription, err error) {
	defer observe("create", time.Now(), &err)

	if len(req.Points) > s.cfg.Model.MaxTrainingPoints {
		return nil, apperrors.BadRequestf("training set of %d points exceeds the limit of %d",
			len(req.Points), s.cfg.Model.MaxTrainingPoints)
	}

	kernel := s.cfg.DefaultKernel()
	if req.Kernel != "" {
		if kernel, err = kernels.ParseKernel(req.Kernel); err != nil {
			return nil, err
		}
	}
	bandwidth := s.cfg.Model.Bandwidth
	if req.Bandwidth != nil {
		bandwidth = *req.Bandwidth
	}

	id := fmt.Sprintf("model_%d_%d", time.Now().UnixNano(), s.seq.Add(1))
	modelLogger := s.logger.WithFields(map[string]interface{}{"model_id": id})

	model, err := rbf.New(req.Points, req.Outputs,
		rbf.WithKernel(kernel),
		rbf.WithBandwidth(bandwidth),
		rbf.WithCalibration(s.cfg.Calibration()),
		rbf.WithLogger(modelLogger.Zap()),
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "create model")
	}

	now := time.Now()
	entry := &modelEntry{id: id, model: model, createdAt: now, updatedAt: now}

	s.modelsMu.Lock()
	s.models[id] = entry
	s.modelsMu.Unlock()

	modelsActive.Inc()
	trainingPoints.WithLabelValues("create").Observe(float64(model.Len()))

	modelLogger.Info("Model created", map[string]interface{}{
		"kernel":    kernel.String(),
		"bandwidth": bandwidth,
		"size":      model.Len(),
		"dimension": model.Dim(),
	})

	return entry.describe(), nil
}

func (s *Server) getModel(id string) (*ModelDescription, error) {
	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()
	return entry.describe(), nil
}

func (s *Server) predict(id string, req PredictRequest) (result *PredictResponse, err error) {
	defer observe("predict", time.Now(), &err)

	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.RLock()
	defer entry.mu.RUnlock()

	outputs, err := entry.model.Predict(req.Points)
	if err != nil {
		return nil, apperrors.Wrapf(err, "predict with model %s", id)
	}
	return &PredictResponse{Outputs: outputs}, nil
}

func (s *Server) update(id string, req ObservationRequest) (result *ModelDescription, err error) {
	defer observe("update", time.Now(), &err)

	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	// duplicates are counted, so the limit can reject an update that would fit
	if size := entry.model.Len() + len(req.Points); size > s.cfg.Model.MaxTrainingPoints {
		return nil, apperrors.BadRequestf("training set of up to %d points exceeds the limit of %d",
			size, s.cfg.Model.MaxTrainingPoints)
	}

	before := entry.model.Len()
	wasFitted := entry.model.State() == interpolation.Fitted
	if err = entry.model.Update(req.Points, req.Outputs); err != nil {
		// a failed refit still merged the observations
		if wasFitted && entry.model.State() == interpolation.Failed {
			entry.updatedAt = time.Now()
		}
		return nil, apperrors.Wrapf(err, "update model %s", id)
	}
	entry.updatedAt = time.Now()

	trainingPoints.WithLabelValues("update").Observe(float64(entry.model.Len()))
	s.logger.Info("Model updated", map[string]interface{}{
		"model_id": id,
		"received": len(req.Points),
		"added":    entry.model.Len() - before,
		"size":     entry.model.Len(),
	})

	return entry.describe(), nil
}

func (s *Server) calibrate(id string, req ObservationRequest) (result *ModelDescription, err error) {
	defer observe("calibrate", time.Now(), &err)

	entry, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if err = entry.model.Calibrate(req.Points, req.Outputs); err != nil {
		return nil, apperrors.Wrapf(err, "calibrate model %s", id)
	}
	entry.updatedAt = time.Now()

	if req.Refit {
		if err = entry.model.Refit(); err != nil {
			return nil, apperrors.Wrapf(err, "refit model %s", id)
		}
	}

	return entry.describe(), nil
}

func (s *Server) deleteModel(id string) (err error) {
	defer observe("delete", time.Now(), &err)

	if id == "" {
		return apperrors.BadRequestf("model_id is required")
	}

	s.modelsMu.Lock()
	defer s.modelsMu.Unlock()

	if _, ok := s.models[id]; !ok {
		return apperrors.NotFound(id)
	}
	delete(s.models, id)
	modelsActive.Dec()

	s.logger.Info("Model deleted", map[string]interface{}{"model_id": id})
	return nil
}

// Close releases all registered models
func (s *Server) Close() error {
	s.modelsMu.Lock()
	defer s.modelsMu.Unlock()

	modelsActive.Sub(float64(len(s.models)))
	s.models = make(map[string]*modelEntry)
	return nil
}

// respondJSON writes v as a JSON body with the given status.
func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("Failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

// respondWithHTTPError writes err with its mapped status code.
func (s *Server) respondWithHTTPError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	fields := map[string]interface{}{
		"status": status,
		"error":  err.Error(),
	}
	if ierr, ok := interpolation.IsInterpolationError(err); ok {
		fields["component"] = ierr.Component
		fields["operation"] = ierr.Op
	}
	switch {
	case status >= http.StatusInternalServerError:
		s.logger.Error("Request failed", fields)
	case status == http.StatusConflict, status == http.StatusUnprocessableEntity:
		s.logger.Warn("Model operation failed", fields)
	}
	s.respondJSON(w, status, map[string]interface{}{
		"error": err.Error(),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return apperrors.BadRequestf("invalid request body: %v", err)
	}
	return nil
}

// handleCreate handles POST /api/v1/models
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondWithHTTPError(w, err)
		return
	}

	result, err := s.createModel(req)
	if err != nil {
		s.respondWithHTTPError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, result)
}

// handleGet handles GET /api/v1/models/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	result, err := s.getModel(chi.URLParam(r, "id"))
	if err != nil {
		s.respondWithHTTPError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleDelete handles DELETE /api/v1/models/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deleteModel(id); err != nil {
		s.respondWithHTTPError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{
		"model_id": id,
		"status":   "deleted",
	})
}

// handlePredict handles POST /api/v1/models/{id}/predict
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req PredictRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondWithHTTPError(w, err)
		return
	}

	result, err := s.predict(chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondWithHTTPError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleUpdate handles POST /api/v1/models/{id}/update
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req ObservationRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondWithHTTPError(w, err)
		return
	}

	result, err := s.update(chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondWithHTTPError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

// handleCalibrate handles POST /api/v1/models/{id}/calibrate
func (s *Server) handleCalibrate(w http.ResponseWriter, r *http.Request) {
	var req ObservationRequest
	if err := decodeBody(r, &req); err != nil {
		s.respondWithHTTPError(w, err)
		return
	}

	result, err := s.calibrate(chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondWithHTTPError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}
