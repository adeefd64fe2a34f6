package httpapi

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/zflow-run/zflow/pkg/executor"
	"github.com/zflow-run/zflow/pkg/flowdsl"
	"github.com/zflow-run/zflow/pkg/registry"
	"github.com/zflow-run/zflow/pkg/value"
)

// Server holds the executor and registry the façade fronts, per spec
// §4.5. Grounded on evalgo-org-eve/pkg/statemanager's
// Manager.RegisterRoutes(*echo.Group) shape.
type Server struct {
	exec     executor.Executor
	registry *registry.Registry
}

// New wires a Server over an executor and template registry.
func New(exec executor.Executor, reg *registry.Registry) *Server {
	return &Server{exec: exec, registry: reg}
}

// RegisterRoutes adds the flow endpoints to an Echo group.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.POST("/flows", s.handleStart)
	g.GET("/flows", s.handleGetAll)
	g.GET("/flows/:id", s.handlePoll)
	g.DELETE("/flows/:id", s.handleDelete)
	g.POST("/flows/:id/pause", s.handlePause)
	g.POST("/flows/:id/resume", s.handleResume)
	g.POST("/flows/:id/abort", s.handleAbort)
	g.GET("/flows/:id/debug", s.handleDebug)
}

// resolveFlow implements the start algorithm's resolution step (spec
// §4.5 step 2): look up a template if needed, decode and bind a
// parameter if one was supplied, and enforce the parameterless/parameter
// mismatch rules.
func (s *Server) resolveFlow(c echo.Context, req startRequest) (*flowdsl.Flow, error) {
	switch req.kind {
	case kindFlow:
		return req.flow, nil

	case kindFlowWithParameter:
		param, err := value.Decode(req.inputSchema, req.parameterJSON)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid parameter: "+err.Error())
		}
		return req.flow.Provide(param), nil

	case kindTemplate:
		tmpl, err := s.registry.Get(c.Request().Context(), req.templateID)
		if err != nil {
			var notFound *registry.NotFoundError
			if errors.As(err, &notFound) {
				return nil, echo.NewHTTPError(http.StatusNotFound, "unknown template")
			}
			return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if tmpl.InputSchema != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "template requires a parameter")
		}
		return tmpl.Flow, nil

	case kindTemplateWithParameter:
		tmpl, err := s.registry.Get(c.Request().Context(), req.templateID)
		if err != nil {
			var notFound *registry.NotFoundError
			if errors.As(err, &notFound) {
				return nil, echo.NewHTTPError(http.StatusNotFound, "unknown template")
			}
			return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		if tmpl.InputSchema == nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "template takes no parameter")
		}
		param, err := value.Decode(tmpl.InputSchema, req.parameterJSON)
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid parameter: "+err.Error())
		}
		return tmpl.Flow.Provide(param), nil

	default:
		return nil, echo.NewHTTPError(http.StatusBadRequest, "unknown StartRequest variant")
	}
}

func (s *Server) handleStart(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable body")
	}

	req, err := parseStartRequest(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	flow, err := s.resolveFlow(c, req)
	if err != nil {
		return err
	}

	id := uuid.NewString()
	if err := s.exec.Start(c.Request().Context(), id, flow); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, startResponse{FlowID: id})
}

func (s *Server) handleGetAll(c echo.Context) error {
	seq, err := s.exec.GetAll(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	flows := make(map[string]string)
	for id, status := range seq {
		flows[id] = string(status)
	}
	return c.JSON(http.StatusOK, getAllResponse{Flows: flows})
}

func (s *Server) handlePoll(c echo.Context) error {
	id := c.Param("id")
	outcome, ok, err := s.exec.Poll(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown flow")
	}

	encoded, err := value.EncodePollOutcome(outcome)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSONBlob(http.StatusOK, encoded)
}

func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")
	err := s.exec.Delete(c.Request().Context(), id)
	switch {
	case err == nil:
		return c.NoContent(http.StatusOK)
	default:
		var running *executor.FlowRunningError
		if errors.As(err, &running) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handlePause(c echo.Context) error {
	if err := s.exec.Pause(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleResume(c echo.Context) error {
	if err := s.exec.Resume(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) handleAbort(c echo.Context) error {
	if err := s.exec.Abort(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
