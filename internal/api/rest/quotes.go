package rest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/quote"
	"github.com/KevinKickass/AlarmConfigurator/internal/types"
)

// POST /api/v1/sessions/:id/quote
func (s *Server) submitQuote(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	var customer quote.Customer
	if err := c.ShouldBindJSON(&customer); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("QUOTE_400", "Invalid request body", err.Error()))
		return
	}

	ev, err := s.lm.Sessions().Evaluate(id)
	if err != nil {
		s.sessionError(c, err)
		return
	}

	sub, err := s.lm.Quotes().Submit(c.Request.Context(), ev, customer)
	if err != nil {
		var invalid *quote.InvalidConfigurationError
		switch {
		case errors.As(err, &invalid):
			c.JSON(http.StatusUnprocessableEntity, types.NewErrorResponse("QUOTE_422", "Configuration is not valid", gin.H{
				"violations": invalid.Violations,
			}))
		case errors.Is(err, quote.ErrInvalidCustomer):
			c.JSON(http.StatusBadRequest, types.NewErrorResponse("QUOTE_400", "Customer name or email required", nil))
		default:
			s.logger.Error("Quote submit failed", zap.String("session_id", id.String()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, types.NewErrorResponse("QUOTE_500", "Failed to submit quote", err.Error()))
		}
		return
	}

	status := http.StatusOK
	if sub.Created {
		status = http.StatusCreated
	}
	c.JSON(status, sub)
}

// GET /api/v1/quotes
func (s *Server) listQuotes(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if offset < 0 {
		offset = 0
	}

	opts := quote.ListOptions{
		Limit:  limit,
		Offset: offset,
		Search: c.Query("search"),
	}

	quotes, total, err := s.lm.Quotes().List(c.Request.Context(), opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("QUOTE_500", "Failed to list quotes", err.Error()))
		return
	}
	if quotes == nil {
		quotes = []*quote.Quote{}
	}

	c.JSON(http.StatusOK, gin.H{
		"quotes": quotes,
		"total":  total,
		"offset": offset,
	})
}

// GET /api/v1/quotes/:id
func (s *Server) getQuote(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("QUOTE_400", "Invalid quote ID", err.Error()))
		return
	}

	q, err := s.lm.Quotes().Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, quote.ErrNotFound) {
			c.JSON(http.StatusNotFound, types.NewErrorResponse("QUOTE_404", "Quote not found", nil))
			return
		}
		c.JSON(http.StatusInternalServerError, types.NewErrorResponse("QUOTE_500", "Failed to load quote", err.Error()))
		return
	}

	c.JSON(http.StatusOK, q)
}

// POST /api/v1/quotes/verify
func (s *Server) verifyQuoteToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, types.NewErrorResponse("QUOTE_400", "Invalid request body", err.Error()))
		return
	}

	claims, q, err := s.lm.Quotes().VerifyToken(c.Request.Context(), req.Token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, types.NewErrorResponse("QUOTE_401", "Invalid or expired quote token", err.Error()))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"claims": claims,
		"quote":  q,
	})
}
