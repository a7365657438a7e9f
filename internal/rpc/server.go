// Package rpc serves the coordinator read commands over HTTP and provides a client for them.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/mijia/internal/coordinator"
	"github.com/srg/mijia/internal/facade"
	"github.com/srg/mijia/internal/groutine"
	"github.com/srg/mijia/internal/sensor"
)

// Commands is what the server exposes. *coordinator.Coordinator implements it.
type Commands interface {
	facade.Host
	Reading(ctx context.Context, id sensor.Identifier) (sensor.Reading, error)
	Status() coordinator.Status
}

// Options configures the HTTP server
type Options struct {
	Listen          string        `default:":8080"`
	ShutdownTimeout time.Duration `default:"10s"`
}

// Server is the HTTP front of one coordinator.
type Server struct {
	cmds   Commands
	names  map[sensor.Identifier]string
	opts   Options
	logger *logrus.Logger
}

type ctxKey int

const ctxKeyRequestID ctxKey = iota

// NewServer creates a server. names supplies optional display names for sensors.
func NewServer(cmds Commands, names map[sensor.Identifier]string, opts *Options, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.New()
	}
	var o Options
	if opts != nil {
		o = *opts
	}
	defaults.SetDefaults(&o)
	if names == nil {
		names = map[sensor.Identifier]string{}
	}

	return &Server{cmds: cmds, names: names, opts: o, logger: logger}
}

// Handler builds the HTTP router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "no such endpoint")
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.Get("/temperature", s.handleAttribute(AttrTemperature))
				r.Get("/humidity", s.handleAttribute(AttrHumidity))
				r.Get("/battery", s.handleAttribute(AttrBattery))
			})
		})
	})

	return r
}

// ListenAndServe listens on the configured address and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.opts.Listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	groutine.Go(ctx, "rpc-server", func(context.Context) {
		s.logger.WithField("address", ln.Addr().String()).Info("API server listening")
		errCh <- srv.Serve(ln)
	})

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("API server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	state := s.cmds.Status().State
	if state != coordinator.Running {
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", State: state})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", State: state})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, newStatusResponse(s.cmds.Status(), s.names))
}

func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	st := s.cmds.Status()
	if st.State != coordinator.Running {
		writeError(w, http.StatusServiceUnavailable, ErrCodeCoordinatorUnavailable,
			fmt.Sprintf("coordinator for %s is %s", st.Controller, st.State))
		return
	}
	writeJSON(w, http.StatusOK, newStatusResponse(st, s.names).Sensors)
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := s.sensorParam(w, r)
	if !ok {
		return
	}
	reading, err := s.cmds.Reading(r.Context(), id)
	if err != nil {
		s.writeCommandError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SensorResponse{
		Sensor:      id.String(),
		Name:        s.names[id],
		Temperature: nullable(reading.Temperature),
		Humidity:    reading.Humidity,
		Battery:     reading.Battery,
	})
}

func (s *Server) handleAttribute(attr string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := s.sensorParam(w, r)
		if !ok {
			return
		}

		var (
			value *float64
			err   error
		)
		switch attr {
		case AttrTemperature:
			var v float64
			v, err = s.cmds.ReadTemperature(r.Context(), id)
			value = nullable(v)
		case AttrHumidity:
			var v int
			v, err = s.cmds.ReadHumidity(r.Context(), id)
			f := float64(v)
			value = &f
		case AttrBattery:
			var v int
			v, err = s.cmds.ReadBattery(r.Context(), id)
			f := float64(v)
			value = &f
		}
		if err != nil {
			s.writeCommandError(w, r, err)
			return
		}

		writeJSON(w, http.StatusOK, AttributeResponse{Sensor: id.String(), Attribute: attr, Value: value})
	}
}

func (s *Server) sensorParam(w http.ResponseWriter, r *http.Request) (sensor.Identifier, bool) {
	id, err := sensor.ParseIdentifier(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidSensor, err.Error())
		return "", false
	}
	return id, true
}

func (s *Server) writeCommandError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sensor.ErrCoordinatorUnavailable):
		writeError(w, http.StatusServiceUnavailable, ErrCodeCoordinatorUnavailable, err.Error())
	case errors.Is(err, sensor.ErrUnknownSensor):
		writeError(w, http.StatusNotFound, ErrCodeUnknownSensor, err.Error())
	default:
		s.logger.WithFields(logrus.Fields{
			"path":       r.URL.Path,
			"request_id": r.Context().Value(ctxKeyRequestID),
			"error":      err,
		}).Error("Read command failed")
		writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
	}
}

// requestIDMiddleware reuses the client's X-Request-ID or generates one.
func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		ctx := context.WithValue(r.Context(), ctxKeyRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      wrapped.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  r.Context().Value(ctxKeyRequestID),
		}).Debug("HTTP request")
	})
}

func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"error":      err,
					"method":     r.Method,
					"path":       r.URL.Path,
					"request_id": r.Context().Value(ctxKeyRequestID),
				}).Error("Panic recovered in HTTP handler")
				writeError(w, http.StatusInternalServerError, ErrCodeInternal, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // connection may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}
