// Package api exposes the decision engine over HTTP for operational
// tooling: synchronous decisions, outcome ingestion and diversity
// inspection.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bandit-trading-engine/internal/diversity"
	"bandit-trading-engine/internal/ensemble"
	"bandit-trading-engine/internal/interfaces"
	"bandit-trading-engine/internal/logger"
	"bandit-trading-engine/internal/types"
)

type Server struct {
	eng        interfaces.Engine
	loop       interfaces.FeedbackLoop
	div        func() diversity.Report
	estimators []interfaces.Estimator
}

func NewServer(eng interfaces.Engine, loop interfaces.FeedbackLoop, div func() diversity.Report, estimators []interfaces.Estimator) *Server {
	return &Server{eng: eng, loop: loop, div: div, estimators: estimators}
}

// Router builds the gin router. Separated from Run so tests can drive
// handlers with httptest.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.health)
	v1 := r.Group("/v1")
	{
		v1.POST("/decide", s.decide)
		v1.POST("/outcome", s.outcome)
		v1.GET("/diversity", s.diversityReport)
		v1.GET("/state", s.state)
	}
	return r
}

func (s *Server) Run(addr string) error {
	logger.Info(context.Background(), "API listening", "addr", addr)
	return s.Router().Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type decideRequest struct {
	Features types.FeatureVector `json:"features" binding:"required"`
}

func (s *Server) decide(c *gin.Context) {
	var req decideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	dec, err := s.eng.Step(c.Request.Context(), req.Features)
	if err != nil {
		var inv *types.InvalidFeatureError
		switch {
		case errors.As(err, &inv):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case ensemble.IsNoViable(err):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, dec)
}

func (s *Server) outcome(c *gin.Context) {
	var out types.LearningOutcome
	if err := c.ShouldBindJSON(&out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := s.loop.Apply(out); err != nil {
		var unknown *types.UnknownAlgorithmError
		if errors.As(err, &unknown) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "queued", "algorithm_id": out.AlgorithmID})
}

func (s *Server) diversityReport(c *gin.Context) {
	c.JSON(http.StatusOK, s.div())
}

// state exposes each estimator's opaque snapshot for debugging and
// offline analysis.
func (s *Server) state(c *gin.Context) {
	out := make(map[string]json.RawMessage, len(s.estimators))
	for _, est := range s.estimators {
		blob, err := est.Snapshot()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "algorithm_id": est.ID()})
			return
		}
		out[est.ID()] = blob
	}
	c.JSON(http.StatusOK, out)
}
