// Package api — локальный HTTP API трекера.
// Все ответы в JSON; /metrics отдаёт метрики Prometheus.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/pullups/internal/backup"
	"serotonyl.ru/pullups/internal/common"
	"serotonyl.ru/pullups/internal/features/chests"
	"serotonyl.ru/pullups/internal/features/economy"
	"serotonyl.ru/pullups/internal/features/progress"
	"serotonyl.ru/pullups/internal/metrics"
)

const (
	maxBodyBytes   = 1 << 20
	maxBackupBytes = 32 << 20
	requestTimeout = 30 * time.Second

	// PassphraseHeader — пароль шифрования бэкапа в запросе.
	PassphraseHeader = "X-Backup-Passphrase"
)

// Services — зависимости сервера.
type Services struct {
	Progress *progress.Service
	Economy  *economy.Service
	Chests   *chests.Service
	Backup   *backup.Service
	Metrics  *metrics.Manager
}

// Server — HTTP API.
type Server struct {
	progress *progress.Service
	economy  *economy.Service
	chests   *chests.Service
	backup   *backup.Service
	metrics  *metrics.Manager

	gatherer prometheus.Gatherer // nil — /metrics выключен
}

// NewServer создаёт сервер.
func NewServer(s Services) *Server {
	return &Server{
		progress: s.Progress,
		economy:  s.Economy,
		chests:   s.Chests,
		backup:   s.Backup,
		metrics:  s.Metrics,
	}
}

// EnableMetrics включает /metrics для указанного реестра.
func (s *Server) EnableMetrics(g prometheus.Gatherer) { s.gatherer = g }

// Handler возвращает роутер chi со всеми маршрутами.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(s.instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)

		r.Get("/sessions", s.handleListSessions)
		r.Post("/sessions", s.handleLogSession)

		r.Get("/balance", s.handleBalance)
		r.Get("/transactions", s.handleTransactions)

		r.Get("/rank", s.handleRank)
		r.Get("/ranks", s.handleRanks)
		r.Get("/streak", s.handleStreak)
		r.Get("/records", s.handleRecords)
		r.Get("/milestones", s.handleMilestones)
		r.Get("/achievements", s.handleAchievements)

		r.Route("/chests", func(r chi.Router) {
			r.Get("/", s.handleChestCatalogue)
			r.Get("/history", s.handleChestHistory)
			r.Get("/{tier}/odds", s.handleOdds)
			r.Post("/{tier}/open", s.handleOpenChest)
		})
		r.Get("/wallet", s.handleWallet)
		r.Get("/modifiers", s.handleGetModifiers)
		r.Put("/modifiers", s.handleSetModifiers)

		r.Get("/backup", s.handleExport)
		r.Post("/backup", s.handleImport)
		r.Delete("/data", s.handleReset)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	return r
}

// instrument считает запросы и их длительность.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.metrics.CounterRequests.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
		s.metrics.HistRequestDuration.Observe(time.Since(start).Seconds())

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"duration":   time.Since(start).String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP запрос")
	})
}

// writeJSON пишет JSON-ответ.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Ошибка записи ответа")
	}
}

// writeError пишет ошибку в JSON.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"status":  status,
		},
	})
}

// writeServiceError выбирает HTTP-статус по типу ошибки.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.WithError(err).Error("Ошибка обработки запроса")
	}
	msg := err.Error()
	if errors.Is(err, common.ErrPersistenceUnavailable) {
		msg = common.ErrPersistenceUnavailable.Error()
	}
	writeError(w, status, msg)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrEmptySession),
		errors.Is(err, common.ErrInvalidReps),
		errors.Is(err, common.ErrInvalidAmount),
		errors.Is(err, common.ErrUnknownTier),
		errors.Is(err, common.ErrInvalidImport):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrBadPassphrase):
		return http.StatusForbidden
	case errors.Is(err, common.ErrInsufficientCoins):
		return http.StatusPaymentRequired
	case errors.Is(err, common.ErrPersistenceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON читает тело запроса; неизвестные поля — ошибка.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "некорректный JSON: "+err.Error())
		return false
	}
	return true
}

// queryLimit читает ?limit=; отсутствующий или некорректный — def.
func queryLimit(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return def
	}
	return n
}
