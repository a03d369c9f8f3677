package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KevinKickass/AlarmConfigurator/internal/api/websocket"
	"github.com/KevinKickass/AlarmConfigurator/internal/config"
	"github.com/KevinKickass/AlarmConfigurator/internal/interfaces"
)

type Server struct {
	router *gin.Engine
	lm     interfaces.LifecycleManager
	logger *zap.Logger
	server *http.Server
	wsHub  *websocket.Hub
}

func NewServer(cfg *config.Config, lm interfaces.LifecycleManager, logger *zap.Logger, wsHub *websocket.Hub) *Server {
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		router: gin.New(),
		lm:     lm,
		logger: logger,
		wsHub:  wsHub,
	}

	s.router.Use(gin.Recovery())
	s.router.Use(LoggerMiddleware(s.logger))
	s.router.Use(CORSMiddleware(cfg.Server.CORSOrigins))

	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("Starting REST API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("REST server failed", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down REST API server")
	return s.server.Shutdown(ctx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// ==================== CATALOG ====================
		catalog := v1.Group("/catalog")
		{
			catalog.GET("", s.getCatalog)
			catalog.GET("/limits", s.getLimits)
			catalog.GET("/addons/:addon", s.getAddon)
			catalog.GET("/loads", s.listCatalogLoads)
			catalog.POST("/reload", s.reloadCatalog)
		}

		// ==================== SESSIONS ====================
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", s.createSession)
			sessions.GET("/:id", s.getSession)
			sessions.DELETE("/:id", s.deleteSession)
			sessions.PUT("/:id/context", s.setSessionContext)

			sessions.POST("/:id/addons/:addon/increment", s.incrementAddon)
			sessions.POST("/:id/addons/:addon/decrement", s.decrementAddon)
			sessions.GET("/:id/addons/:addon/can-increment", s.canIncrementAddon)
			sessions.PUT("/:id/addons/:addon", s.setAddonQuantity)
			sessions.DELETE("/:id/addons/:addon", s.removeAddon)

			sessions.POST("/:id/quote", s.submitQuote)
		}

		// ==================== QUOTES ====================
		quotes := v1.Group("/quotes")
		{
			quotes.GET("", s.listQuotes)
			quotes.GET("/:id", s.getQuote)
			quotes.POST("/verify", s.verifyQuoteToken)
		}

		// ==================== SYSTEM ====================
		system := v1.Group("/system")
		{
			system.GET("/status", s.getSystemStatus)
		}

		// ==================== WEBSOCKET (subscribe via first message) ====================
		ws := v1.Group("/ws")
		{
			ws.GET("/sessions", s.wsSessions)
			ws.GET("/status", s.wsStatus)
		}
	}
}

// WebSocket handlers
func (s *Server) wsSessions(c *gin.Context) {
	websocket.ServeWs(s.wsHub, c.Writer, c.Request)
}

func (s *Server) wsStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"connected_clients": s.wsHub.GetClientCount(),
	})
}

// Health check (public)
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
