package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"migration-assess/backend/internal/auth"
	"migration-assess/backend/internal/flow"
	"migration-assess/backend/pkg/models"
)

// Server holds the dependencies for the flow API.
type Server struct {
	Machine *flow.Machine
}

// NewServer creates a new Server.
func NewServer(machine *flow.Machine) *Server {
	return &Server{Machine: machine}
}

// RegisterRoutes mounts the flow endpoints on an (already authenticated)
// route group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.POST("/flows", s.InitializeFlow)
	g.GET("/flows", s.ListFlows)
	g.GET("/flows/:id", s.GetFlowStatus)
	g.POST("/flows/:id/phases/:phase", s.ExecutePhase)
	g.POST("/flows/:id/resume", s.ResumeFlow)
	g.POST("/flows/:id/finalize", s.FinalizeFlow)
	g.POST("/flows/:id/pause", s.PauseFlow)
	g.POST("/flows/:id/unpause", s.UnpauseFlow)
	g.POST("/flows/:id/cancel", s.CancelFlow)
}

func tenantKey(c echo.Context) (models.TenantKey, error) {
	key, ok := auth.KeyFromContext(c.Request().Context())
	if !ok {
		return models.TenantKey{}, echo.NewHTTPError(http.StatusUnauthorized, "tenant scope not found in context")
	}
	return key, nil
}

// InitializeRequest is the body for creating a flow.
type InitializeRequest struct {
	FlowKind  models.FlowKind `json:"flow_kind"`
	Selection []string        `json:"selection"`
}

// InitializeFlow creates a new flow
// (POST /api/v1/flows)
func (s *Server) InitializeFlow(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}

	var req InitializeRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}

	master, err := s.Machine.Initialize(c.Request().Context(), key, req.FlowKind, req.Selection)
	if err != nil {
		return coreError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"flow_id": master.ID,
		"status":  master.Status,
	})
}

// ListFlows returns the tenant's flows
// (GET /api/v1/flows)
func (s *Server) ListFlows(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}

	flows, err := s.Machine.ListFlows(c.Request().Context(), key)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, flows)
}

// GetFlowStatus returns the read-only status projection
// (GET /api/v1/flows/:id?refresh_readiness=true)
func (s *Server) GetFlowStatus(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}

	refresh := c.QueryParam("refresh_readiness") == "true"
	status, err := s.Machine.GetStatus(c.Request().Context(), key, c.Param("id"), refresh)
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, status)
}

// ExecutePhaseRequest is the body for running a phase.
type ExecutePhaseRequest struct {
	Input map[string]any `json:"input"`
}

// ExecutePhase runs the flow's current phase
// (POST /api/v1/flows/:id/phases/:phase)
func (s *Server) ExecutePhase(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}

	var req ExecutePhaseRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}

	result, err := s.Machine.ExecutePhase(c.Request().Context(), key, c.Param("id"), models.Phase(c.Param("phase")), req.Input)
	if err != nil {
		return coreError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"phase_result": result,
		"partial":      result.FailedUnits > 0,
	})
}

// ResumeRequest is the body carrying the user's confirmation or edits.
type ResumeRequest struct {
	UserInput map[string]any `json:"user_input"`
}

// ResumeFlow confirms the awaiting phase and advances
// (POST /api/v1/flows/:id/resume)
func (s *Server) ResumeFlow(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}

	var req ResumeRequest
	if err := c.Bind(&req); err != nil {
		return problem(c, http.StatusBadRequest, "Invalid request body", err.Error())
	}

	child, err := s.Machine.Resume(c.Request().Context(), key, c.Param("id"), req.UserInput)
	if err != nil {
		return coreError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"current_phase": child.CurrentPhase,
		"phase_status":  child.PhaseStatus,
	})
}

// FinalizeFlow completes a flow from its terminal phase
// (POST /api/v1/flows/:id/finalize)
func (s *Server) FinalizeFlow(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}

	master, err := s.Machine.Finalize(c.Request().Context(), key, c.Param("id"))
	if err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": master.Status})
}

// PauseFlow suspends a running flow
// (POST /api/v1/flows/:id/pause)
func (s *Server) PauseFlow(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}
	if err := s.Machine.Pause(c.Request().Context(), key, c.Param("id")); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": models.LifecyclePaused})
}

// UnpauseFlow returns a paused flow to running
// (POST /api/v1/flows/:id/unpause)
func (s *Server) UnpauseFlow(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}
	if err := s.Machine.Unpause(c.Request().Context(), key, c.Param("id")); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": models.LifecycleRunning})
}

// CancelFlow cancels a flow from any non-terminal state
// (POST /api/v1/flows/:id/cancel)
func (s *Server) CancelFlow(c echo.Context) error {
	key, err := tenantKey(c)
	if err != nil {
		return err
	}
	if err := s.Machine.Cancel(c.Request().Context(), key, c.Param("id")); err != nil {
		return coreError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": models.LifecycleCancelled})
}
