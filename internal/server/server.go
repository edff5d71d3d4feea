package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/agenthands/dossier/internal/core"
	"github.com/agenthands/dossier/internal/core/graph"
	"github.com/agenthands/dossier/internal/core/model"
	"github.com/agenthands/dossier/internal/scanner"
	"github.com/agenthands/dossier/internal/store"
)

// Linker looks up entities connected through shared contacts.
type Linker interface {
	Linked(ctx context.Context, entityID string, limit int) ([]graph.LinkedEntity, error)
}

type Server struct {
	Engine   *core.Engine
	Registry *scanner.Registry
	Graph    Linker
	logger   zerolog.Logger
}

// NewServer wires the HTTP handlers. graph may be nil, in which case the
// linked-entity route answers 404.
func NewServer(engine *core.Engine, registry *scanner.Registry, graph Linker, logger zerolog.Logger) *Server {
	return &Server{
		Engine:   engine,
		Registry: registry,
		Graph:    graph,
		logger:   logger.With().Str("component", "server").Logger(),
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/healthz", s.Health)
	r.POST("/queries", s.SubmitQuery)
	r.GET("/queries/:id", s.GetQuery)
	r.GET("/queries/:id/entities", s.ListEntities)
	r.GET("/entities/:id/linked", s.LinkedEntities)
	r.GET("/scanners", s.ListScanners)
	r.GET("/scanners/stats", s.ScannerStats)

	return r
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug().
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Int("status", c.Writer.Status()).
			Msg("Request")
	}
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type SubmitQueryRequest struct {
	Type  string `json:"type" binding:"required"`
	Value string `json:"value" binding:"required"`
}

func (s *Server) SubmitQuery(c *gin.Context) {
	var req SubmitQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	qt, err := model.ParseQueryType(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	q, err := model.NewQuery(qt, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.Engine.Submit(c.Request.Context(), q)
	if err != nil {
		if errors.Is(err, model.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		s.logger.Error().Err(err).Str("query_id", q.ID).Msg("Failed to submit query")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process query"})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

func (s *Server) GetQuery(c *gin.Context) {
	outcome, err := s.Engine.Outcome(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) ListEntities(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.Engine.Store.GetQuery(c.Request.Context(), id); err != nil {
		s.storeError(c, err)
		return
	}
	entities, err := s.Engine.Store.ListEntities(c.Request.Context(), id)
	if err != nil {
		s.storeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entities": entities})
}

func (s *Server) LinkedEntities(c *gin.Context) {
	if s.Graph == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Identity graph is not configured"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	linked, err := s.Graph.Linked(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read linked entities")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read identity graph"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"linked": linked})
}

type scannerInfo struct {
	Name     string `json:"name"`
	Category string `json:"category"`
}

func (s *Server) ListScanners(c *gin.Context) {
	var list []scanner.Scanner
	if category := c.Query("category"); category != "" {
		list = s.Registry.ListByCategory(category)
	} else {
		list = s.Registry.List()
	}

	out := make([]scannerInfo, 0, len(list))
	for _, sc := range list {
		out = append(out, scannerInfo{Name: sc.Name(), Category: sc.Category()})
	}
	c.JSON(http.StatusOK, gin.H{"scanners": out})
}

func (s *Server) ScannerStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.Registry.Stats())
}

func (s *Server) storeError(c *gin.Context, err error) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Query not found"})
		return
	}
	s.logger.Error().Err(err).Msg("Store read failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read query"})
}
