// Package http provides the HTTP API for ragd.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rationalhq/ragd/internal/indexer"
	"github.com/rationalhq/ragd/internal/search"
)

// Indexer is the repository lifecycle surface the API exposes.
type Indexer interface {
	Add(ctx context.Context, name, path, language string) error
	Reindex(ctx context.Context, name string) error
	Remove(ctx context.Context, name string) error
	List() []string
}

// Searcher answers similarity queries.
type Searcher interface {
	Search(ctx context.Context, text, repoName string) ([]search.Result, error)
}

// Server provides HTTP endpoints for ragd.
type Server struct {
	echo     *echo.Echo
	indexer  Indexer
	searcher Searcher
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server.
func NewServer(idx Indexer, searcher Searcher, logger *zap.Logger, cfg *Config) (*Server, error) {
	if idx == nil {
		return nil, fmt.Errorf("indexer cannot be nil")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "0.0.0.0",
			Port: 8000,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		indexer:  idx,
		searcher: searcher,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.POST("/repositories", s.handleRepositories)
	s.echo.POST("/reindex", s.handleReindex)
	s.echo.POST("/search", s.handleSearch)
	s.echo.GET("/collections", s.handleCollections)
}

// RepositoryRequest is the request body for POST /repositories.
type RepositoryRequest struct {
	Action   string `json:"action"`
	RepoName string `json:"repo_name"`
	RepoPath string `json:"repo_path"`
	Language string `json:"language"`
}

// ReindexRequest is the request body for POST /reindex.
type ReindexRequest struct {
	RepoName string `json:"repo_name"`
}

// SearchRequest is the request body for POST /search.
type SearchRequest struct {
	Text           string `json:"text"`
	CollectionName string `json:"collection_name"`
}

// CollectionsResponse is the response body for GET /collections.
type CollectionsResponse struct {
	Collections []string `json:"collections"`
}

// StatusResponse is the generic success response body.
type StatusResponse struct {
	Status string `json:"status"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// handleRepositories adds or removes a managed repository.
func (s *Server) handleRepositories(c echo.Context) error {
	var req RepositoryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid repository request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RepoName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "repo_name field is required")
	}

	ctx := c.Request().Context()
	switch req.Action {
	case "add":
		if req.RepoPath == "" || req.Language == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "repo_path and language fields are required for add")
		}
		if err := s.indexer.Add(ctx, req.RepoName, req.RepoPath, req.Language); err != nil {
			return indexerHTTPError(err)
		}
		return c.JSON(http.StatusOK, StatusResponse{Status: "added"})
	case "remove":
		if err := s.indexer.Remove(ctx, req.RepoName); err != nil {
			return indexerHTTPError(err)
		}
		return c.JSON(http.StatusOK, StatusResponse{Status: "removed"})
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "action must be add or remove")
	}
}

// handleReindex rebuilds one repository's collection from scratch.
func (s *Server) handleReindex(c echo.Context) error {
	var req ReindexRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.RepoName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "repo_name field is required")
	}

	if err := s.indexer.Reindex(c.Request().Context(), req.RepoName); err != nil {
		return indexerHTTPError(err)
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "reindexed"})
}

// handleSearch runs a similarity query against one collection.
func (s *Server) handleSearch(c echo.Context) error {
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	results, err := s.searcher.Search(c.Request().Context(), req.Text, req.CollectionName)
	if err != nil {
		switch {
		case errors.Is(err, search.ErrInvalidCollection):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, search.ErrEmptyQuery):
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		default:
			s.logger.Error("search failed", zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
		}
	}
	return c.JSON(http.StatusOK, results)
}

// handleCollections lists the registered repositories.
func (s *Server) handleCollections(c echo.Context) error {
	return c.JSON(http.StatusOK, CollectionsResponse{Collections: s.indexer.List()})
}

// indexerHTTPError maps lifecycle errors onto HTTP status codes.
func indexerHTTPError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, indexer.ErrAlreadyExists):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, indexer.ErrInvalidPath):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, indexer.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, indexer.ErrStorage):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, indexer.ErrIndexing):
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
