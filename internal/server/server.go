// Package server exposes the command registry over HTTP. Commands are the
// same string-keyed operations an in-process host would dispatch; the HTTP
// surface exists so out-of-process extensions can call them.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/koustreak/connshare/internal/errs"
	"github.com/koustreak/connshare/internal/logger"
	"github.com/koustreak/connshare/internal/sharing"
)

const maxBodyBytes = 1 << 20

// Server routes command invocations to registered handlers.
type Server struct {
	commands map[string]sharing.Handler
	log      *logger.Logger
	router   chi.Router
}

// New builds a server over the given command table.
func New(commands map[string]sharing.Handler) *Server {
	s := &Server{
		commands: commands,
		log:      logger.Component("server"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/commands/{command}", s.handleCommand)

	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// commandResponse is the envelope every command invocation returns.
type commandResponse struct {
	Result any         `json:"result,omitempty"`
	Error  *errs.Error `json:"error,omitempty"`
}

func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "command")
	handler, ok := s.commands[name]
	if !ok {
		s.writeError(w, errs.New(errs.CodeUnknown, "unknown command: "+name), http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.writeError(w, errs.Wrap(errs.CodeUnknown, "failed to read request body", err), http.StatusBadRequest)
		return
	}

	result, err := handler(r.Context(), body)
	if err != nil {
		var e *errs.Error
		if !errors.As(err, &e) {
			e = errs.Wrap(errs.CodeUnknown, err.Error(), err)
		}
		s.writeError(w, e, statusFor(e.Code))
		return
	}

	writeJSON(w, http.StatusOK, commandResponse{Result: result})
}

// statusFor maps the error taxonomy onto HTTP statuses.
func statusFor(code errs.Code) int {
	switch code {
	case errs.CodePermissionDenied:
		return http.StatusForbidden
	case errs.CodePermissionRequired:
		return http.StatusUnauthorized
	case errs.CodeConnectionNotFound, errs.CodeExtensionNotFound:
		return http.StatusNotFound
	case errs.CodeInvalidConnectionURI:
		return http.StatusBadRequest
	case errs.CodeNoActiveEditor, errs.CodeNoActiveConnection:
		return http.StatusConflict
	case errs.CodeConnectionFailed, errs.CodeQueryExecutionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, e *errs.Error, status int) {
	s.log.Warnf("command failed: %s (%s)", e.Message, e.Code)
	writeJSON(w, status, commandResponse{Error: e})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
