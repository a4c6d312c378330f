package handlers

import (
	"crypto/subtle"
	"net/http"

	"github.com/sirupsen/logrus"
	"github.com/travelog-app/server/internal/apperr"
	"github.com/travelog-app/server/internal/config"
	"github.com/travelog-app/server/internal/ingest"
	"github.com/travelog-app/server/internal/metrics"
	"github.com/travelog-app/server/internal/models"
	"github.com/travelog-app/server/internal/ratelimit"
	"github.com/travelog-app/server/internal/store"
	"github.com/travelog-app/server/internal/validate"
)

const apiKeyHeader = "X-API-KEY"

// LogsHandler runs the submission pipeline: authenticate, rate-limit,
// ingest, validate, persist. The first failing stage short-circuits to
// the error normalizer; any stored upload is deleted on the way out.
type LogsHandler struct {
	cfg       *config.Config
	ingestor  *ingest.Ingestor
	validator *validate.Validator
	entries   *store.EntryStore
	limiter   *ratelimit.Limiter
	metrics   *metrics.Metrics
	log       *logrus.Entry
}

func NewLogsHandler(
	logger *logrus.Logger,
	cfg *config.Config,
	ingestor *ingest.Ingestor,
	validator *validate.Validator,
	entries *store.EntryStore,
	limiter *ratelimit.Limiter,
	m *metrics.Metrics,
) *LogsHandler {
	return &LogsHandler{
		cfg:       cfg,
		ingestor:  ingestor,
		validator: validator,
		entries:   entries,
		limiter:   limiter,
		metrics:   m,
		log:       logger.WithField("component", "logs_handler"),
	}
}

func (h *LogsHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.entries.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *LogsHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Header credential is preferred and checked before anything else.
	// A body-only credential can only be checked after ingestion.
	headerKey := r.Header.Get(apiKeyHeader)
	if headerKey != "" && !keyMatches(headerKey, h.cfg.APIKey) {
		h.fail(w, apperr.Auth("unauthorized"))
		return
	}

	clientKey := ClientIP(r, h.cfg.TrustProxy)
	allowed, err := h.limiter.Allow(ctx, clientKey)
	if err != nil {
		h.fail(w, apperr.Persistence(err))
		return
	}
	if !allowed {
		h.metrics.RateLimited.Inc()
		h.fail(w, apperr.RateLimit("too many requests, try again later"))
		return
	}

	sub, err := h.ingestor.Read(ctx, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	if headerKey == "" && !keyMatches(sub.APIKey, h.cfg.APIKey) {
		h.ingestor.Discard(ctx, sub)
		h.fail(w, apperr.Auth("unauthorized"))
		return
	}

	uploadedPath := ""
	if sub.File != nil {
		uploadedPath = sub.File.PublicPath
	}
	entry, err := h.validator.Entry(sub.Fields, uploadedPath)
	if err != nil {
		h.ingestor.Discard(ctx, sub)
		h.fail(w, err)
		return
	}

	if err := h.entries.Insert(ctx, entry); err != nil {
		h.ingestor.Discard(ctx, sub)
		h.fail(w, err)
		return
	}

	if sub.File != nil {
		h.metrics.UploadBytes.Add(float64(sub.File.Size))
	}
	h.metrics.EntriesTotal.Inc()
	h.metrics.Submissions.WithLabelValues("ok").Inc()
	writeJSON(w, http.StatusOK, entry)
}

func (h *LogsHandler) fail(w http.ResponseWriter, err error) {
	outcome := writeError(w, h.log, err)
	h.metrics.Submissions.WithLabelValues(outcome).Inc()
}

func keyMatches(provided, expected string) bool {
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}
