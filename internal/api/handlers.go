package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"signal-analyzer/internal/analyzer"
	"signal-analyzer/internal/database"
	"signal-analyzer/internal/indicators"
	"signal-analyzer/internal/market"
	"signal-analyzer/internal/strategy"
)

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	if s.health != nil {
		if err := s.health.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		status["database"] = "ok"
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	report, err := s.analyzer.Analyze(c.Request.Context(), req)
	if err != nil {
		s.respondAnalysisError(c, err)
		return
	}

	if s.repo != nil {
		if err := s.repo.SaveReport(c.Request.Context(), report); err != nil {
			s.logger.Warn().Err(err).Str("report", report.ID).Msg("failed to persist report")
		}
	}

	c.JSON(http.StatusOK, report)
}

func (s *Server) handleBacktest(c *gin.Context) {
	var req analyzer.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}

	result, err := s.analyzer.Backtest(c.Request.Context(), req)
	if err != nil {
		s.respondAnalysisError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleStrategies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"strategies":    strategy.ProfileNames(),
		"trading_types": strategy.TradingTypeNames(),
	})
}

func (s *Server) handleListReports(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not enabled"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	reports, err := s.repo.ListReports(c.Request.Context(), c.Query("symbol"), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (s *Server) handleCreateSubscription(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not enabled"})
		return
	}

	var sub database.Subscription
	if err := c.ShouldBindJSON(&sub); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if sub.Symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol is required"})
		return
	}
	if sub.Capital <= 0 || sub.RiskFraction <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "capital and risk_fraction must be positive"})
		return
	}

	id, err := s.repo.CreateSubscription(c.Request.Context(), &sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleListSubscriptions(c *gin.Context) {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "persistence is not enabled"})
		return
	}

	subs, err := s.repo.ListActiveSubscriptions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"subscriptions": subs, "count": len(subs)})
}

// respondAnalysisError maps core errors to actionable HTTP statuses:
// network trouble is distinguishable from an unknown symbol or a series
// too short to analyze.
func (s *Server) respondAnalysisError(c *gin.Context, err error) {
	switch {
	case market.IsConnectivity(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case errors.Is(err, market.ErrNoData):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case indicators.IsInsufficientHistory(err), errors.Is(err, indicators.ErrEmptySeries):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}
}
