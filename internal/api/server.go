package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tern/internal/config"
	"tern/internal/db"
	"tern/internal/handlers"
	"tern/internal/routes"
	"tern/internal/utils"
	"tern/internal/utils/logger"
)

var log = logger.New("API")

// CustomValidator adapts go-playground validation to echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates the given struct.
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Server is the campaign HTTP API server.
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	redis    *utils.RedisClient
	campaign *handlers.CampaignHandler
}

// NewServer builds the API server with middleware and routes registered.
func NewServer(cfg *config.Config, redis *utils.RedisClient, campaign *handlers.CampaignHandler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	s := &Server{
		echo:     e,
		config:   cfg,
		redis:    redis,
		campaign: campaign,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.healthCheck)

	api := s.echo.Group("/api/v1")
	routes.SetupCampaignRoutes(api, s.campaign)
}

func (s *Server) healthCheck(c echo.Context) error {
	status := map[string]string{"status": "ok", "database": "ok", "redis": "ok"}
	code := http.StatusOK

	if sqlDB, err := db.GetDB().DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status["status"] = "degraded"
		status["database"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if err := s.redis.HealthCheck(c.Request().Context()); err != nil {
		status["status"] = "degraded"
		status["redis"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// Start begins serving HTTP traffic. It blocks until the server stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	log.Info("listening on %s", addr)
	return s.echo.Start(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
