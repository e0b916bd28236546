package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"clickpredict/internal/data"
	"clickpredict/internal/inference"
	"clickpredict/internal/persistence"
	"clickpredict/internal/profile"
)

const defaultTopN = 5

type Config struct {
	ImportancesPath string
	DatasetPath     string
	IDColumn        string
	TargetColumn    string
}

// Server exposes a loaded model over HTTP. A nil service means no model has
// been trained yet; prediction then answers 503.
type Server struct {
	service *inference.Service
	cfg     Config
	metrics *Metrics
	logger  *zap.Logger
}

func NewServer(service *inference.Service, cfg Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		service: service,
		cfg:     cfg,
		metrics: NewMetrics(),
		logger:  logger,
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", s.health)
		r.Post("/predict", s.predict)
		r.Get("/importances", s.importances)
		r.Get("/dataset/summary", s.datasetSummary)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

type healthResponse struct {
	Model      bool     `json:"model_loaded"`
	Features   []string `json:"features,omitempty"`
	Metric     string   `json:"metric,omitempty"`
	Score      float64  `json:"score,omitempty"`
	Iterations int      `json:"iterations,omitempty"`
	Converged  bool     `json:"converged"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{}
	if s.service != nil {
		meta := s.service.Metadata()
		resp = healthResponse{
			Model:      true,
			Features:   meta.Features,
			Metric:     meta.Metric,
			Score:      meta.Score,
			Iterations: s.service.Model().NIter,
			Converged:  meta.Converged,
		}
	}
	writeOK(w, r, resp)
}

type predictResponse struct {
	Label         int        `json:"label"`
	Interested    bool       `json:"interested"`
	Probabilities [2]float64 `json:"probabilities"`
	Confidence    float64    `json:"confidence"`
}

func (s *Server) predict(w http.ResponseWriter, r *http.Request) {
	if s.service == nil {
		s.metrics.observeFailure("no_model")
		writeError(w, r, http.StatusServiceUnavailable, "prediction unavailable: model has not been trained")
		return
	}

	var values map[string]any
	if err := render.DecodeJSON(r.Body, &values); err != nil {
		s.metrics.observeFailure("bad_request")
		writeError(w, r, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}

	p, err := profile.FromMap(values)
	if err == nil {
		err = p.Validate()
	}
	if err != nil {
		s.metrics.observeFailure("invalid_profile")
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	start := time.Now()
	pred, err := s.service.Predict(r.Context(), p.Vector())
	if err != nil {
		s.metrics.observeFailure("predict")
		s.writeDomainError(w, r, err)
		return
	}
	s.metrics.observePrediction(pred.Label, time.Since(start).Seconds())

	writeOK(w, r, predictResponse{
		Label:         pred.Label,
		Interested:    pred.Label == 1,
		Probabilities: pred.Probabilities,
		Confidence:    pred.Confidence(),
	})
}

func (s *Server) importances(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, r, http.StatusBadRequest, "n must be a positive integer")
			return
		}
		n = parsed
	}

	direction, err := persistence.ParseDirection(r.URL.Query().Get("direction"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	rows, err := persistence.LoadImportances(s.cfg.ImportancesPath, n, direction)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeOK(w, r, rows)
}

func (s *Server) datasetSummary(w http.ResponseWriter, r *http.Request) {
	table, err := data.NewCSVReader(s.cfg.DatasetPath).LoadTable()
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	summary, err := data.NewDataValidator().Summarize(table, s.cfg.IDColumn, s.cfg.TargetColumn)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeOK(w, r, summary)
}

func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, profile.ErrInvalidProfile), errors.Is(err, inference.ErrSchemaMismatch):
		code = http.StatusBadRequest
	case errors.Is(err, persistence.ErrModelNotFound):
		code = http.StatusServiceUnavailable
	case errors.Is(err, data.ErrDataAccess):
		code = http.StatusUnprocessableEntity
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, r, code, err.Error())
}
