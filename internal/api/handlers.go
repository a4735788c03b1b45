// Package api contains the HTTP handlers for the migration-assessment
// service. It is a thin translation layer: it binds requests, resolves the
// tenant key from the request context, calls the flow machine, and maps the
// core's error taxonomy onto RFC 7807 problem responses.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"migration-assess/backend/internal/flow"
	"migration-assess/backend/internal/repository"
	"migration-assess/backend/internal/workers"
)

// HealthStatus represents the health check response.
type HealthStatus struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Service   string    `json:"service"`
	Version   string    `json:"version"`
}

// HandleHealth returns basic health status (always returns 200 OK).
func HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Service:   "migration-assess",
		Version:   "1.0.0",
	})
}

// ProblemDetails represents an RFC 7807 Problem Details response.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

// problem writes an RFC 7807 Problem Details JSON error response.
func problem(c echo.Context, status int, title, detail string) error {
	p := ProblemDetails{
		Type:   "about:blank",
		Title:  title,
		Status: status,
		Detail: detail,
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/problem+json")
	c.Response().WriteHeader(status)
	return json.NewEncoder(c.Response()).Encode(p)
}

// coreError maps the core's error taxonomy onto a problem response. Every
// mapped error corresponds to zero durable mutation for the failed call.
func coreError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, flow.ErrInvalidSelection),
		errors.Is(err, flow.ErrUnknownFlowKind),
		errors.Is(err, flow.ErrUnknownPhase):
		return problem(c, http.StatusBadRequest, "Invalid request", err.Error())

	case errors.Is(err, repository.ErrNotFound):
		return problem(c, http.StatusNotFound, "Flow not found", err.Error())

	case errors.Is(err, repository.ErrTenantMismatch):
		return problem(c, http.StatusForbidden, "Tenant mismatch", err.Error())

	case errors.Is(err, flow.ErrPhaseMismatch),
		errors.Is(err, flow.ErrNotAwaitingConfirmation),
		errors.Is(err, flow.ErrAwaitingConfirmation),
		errors.Is(err, flow.ErrTerminalPhase),
		errors.Is(err, flow.ErrNotFinalizable),
		errors.Is(err, flow.ErrFlowNotRunning),
		errors.Is(err, repository.ErrLifecycleMismatch):
		return problem(c, http.StatusConflict, "Invalid flow state", err.Error())

	case errors.Is(err, flow.ErrPersistenceConflict),
		errors.Is(err, repository.ErrConflict):
		return problem(c, http.StatusConflict, "Concurrent update", err.Error())

	case errors.Is(err, workers.ErrWorkerUnavailable):
		return problem(c, http.StatusServiceUnavailable, "Worker unavailable", err.Error())

	default:
		return problem(c, http.StatusInternalServerError, "Internal error", err.Error())
	}
}
