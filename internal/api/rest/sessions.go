package rest

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/capacity"
	"github.com/KevinKickass/AlarmConfigurator/internal/selection"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// sessionID parses :id or answers 400.
func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SESSION_400", "Invalid session ID", err.Error()))
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) sessionError(c *gin.Context, err error) {
	if errors.Is(err, selection.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, types.NewErrorResponse("SESSION_404", "Session not found", nil))
		return
	}
	s.logger.Error("Session request failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, types.NewErrorResponse("SESSION_500", "Session request failed", err.Error()))
}

func (s *Server) respondEvaluation(c *gin.Context, status int, id uuid.UUID) {
	ev, err := s.lm.Sessions().Evaluate(id)
	if err != nil {
		s.sessionError(c, err)
		return
	}
	c.JSON(status, ev)
}

// POST /api/v1/sessions
func (s *Server) createSession(c *gin.Context) {
	var req struct {
		Context string `json:"context"`
	}

	// Body is optional
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SESSION_400", "Invalid request body", err.Error()))
		return
	}

	session, err := s.lm.Sessions().Create(types.PropertyContext(req.Context))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SESSION_400", "Invalid property context", err.Error()))
		return
	}

	s.respondEvaluation(c, http.StatusCreated, session.ID)
}

// GET /api/v1/sessions/:id
func (s *Server) getSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	s.respondEvaluation(c, http.StatusOK, id)
}

// DELETE /api/v1/sessions/:id
func (s *Server) deleteSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	if err := s.lm.Sessions().Delete(id); err != nil {
		s.sessionError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PUT /api/v1/sessions/:id/context
func (s *Server) setSessionContext(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Context string `json:"context" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SESSION_400", "Invalid request body", err.Error()))
		return
	}

	ctx, valid := types.ParseContext(req.Context)
	if !valid {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SESSION_400", "Unsupported property context", req.Context))
		return
	}

	if err := s.lm.Sessions().SetContext(id, ctx); err != nil {
		s.sessionError(c, err)
		return
	}
	s.respondEvaluation(c, http.StatusOK, id)
}

// POST /api/v1/sessions/:id/addons/:addon/increment
func (s *Server) incrementAddon(c *gin.Context) {
	s.mutate(c, func(m *selection.Manager, id uuid.UUID, addon string) (selection.MutationResult, error) {
		return m.Increment(id, addon)
	})
}

// POST /api/v1/sessions/:id/addons/:addon/decrement
func (s *Server) decrementAddon(c *gin.Context) {
	s.mutate(c, func(m *selection.Manager, id uuid.UUID, addon string) (selection.MutationResult, error) {
		return m.Decrement(id, addon)
	})
}

// PUT /api/v1/sessions/:id/addons/:addon
func (s *Server) setAddonQuantity(c *gin.Context) {
	var req struct {
		Quantity *int `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("SELECTION_400", "Invalid request body", err.Error()))
		return
	}

	s.mutate(c, func(m *selection.Manager, id uuid.UUID, addon string) (selection.MutationResult, error) {
		return m.SetQuantity(id, addon, *req.Quantity)
	})
}

// DELETE /api/v1/sessions/:id/addons/:addon
func (s *Server) removeAddon(c *gin.Context) {
	s.mutate(c, func(m *selection.Manager, id uuid.UUID, addon string) (selection.MutationResult, error) {
		return m.Remove(id, addon)
	})
}

type mutation func(m *selection.Manager, id uuid.UUID, addon string) (selection.MutationResult, error)

// mutate applies op and answers 409 with the gate's reason when the
// selection store refused it.
func (s *Server) mutate(c *gin.Context, op mutation) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	addon := c.Param("addon")

	res, err := op(s.lm.Sessions(), id, addon)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	if !res.Applied {
		c.JSON(http.StatusConflict, types.NewErrorResponse("SELECTION_409", res.Reason, gin.H{
			"addon_id": addon,
			"quantity": res.Quantity,
		}))
		return
	}

	ev, err := s.lm.Sessions().Evaluate(id)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":  res,
		"session": ev,
	})
}

// GET /api/v1/sessions/:id/addons/:addon/can-increment
func (s *Server) canIncrementAddon(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	addon := c.Param("addon")

	sessions := s.lm.Sessions()
	decision, err := sessions.CanIncrement(id, addon)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	resp := gin.H{
		"addon_id": addon,
		"allowed":  decision.Allowed,
		"reason":   decision.Reason,
	}

	if session, err := sessions.Get(id); err == nil {
		current := capacity.QuantityOf(session.Store.Selection(), addon)
		if next, known := sessions.Engine().NextQuantity(addon, current); known {
			resp["next_quantity"] = next
		}
	}

	c.JSON(http.StatusOK, resp)
}
