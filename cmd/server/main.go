package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/clinscore/trs/internal/cache"
	"github.com/clinscore/trs/internal/cohort"
	apperrors "github.com/clinscore/trs/internal/errors"
	"github.com/clinscore/trs/internal/monitoring"
	"github.com/clinscore/trs/internal/ratelimit"
	"github.com/clinscore/trs/internal/security"
	"github.com/clinscore/trs/internal/store"
	"github.com/clinscore/trs/internal/trs"
	"github.com/clinscore/trs/internal/validation"
)

func main() {
	// Structured logging setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Configuration from environment with defaults
	dataDir := getEnvOrDefault("DATA_DIR", "./data")
	port := getEnvOrDefault("PORT", "8080")
	ruleFile := os.Getenv("RULE_FILE")
	cacheTTL := getEnvDuration("REPORT_CACHE_TTL", time.Hour)

	rule := trs.DefaultRule()
	if ruleFile != "" {
		loaded, err := trs.LoadRule(ruleFile)
		if err != nil {
			slog.Error("Failed to load rule file", "path", ruleFile, "error", err)
			os.Exit(1)
		}
		rule = loaded
		slog.Info("Loaded score rule", "path", ruleFile)
	}
	if err := rule.Validate(); err != nil {
		slog.Error("Invalid score rule", "error", err)
		os.Exit(1)
	}

	// Initialize report store
	reportStore, err := store.New(dataDir)
	if err != nil {
		slog.Error("Failed to initialize report store", "error", err)
		os.Exit(1)
	}
	defer apperrors.SafeClose(reportStore, "report store")

	// Initialize monitoring system
	appMetrics := monitoring.NewMetrics()
	appLogger := monitoring.NewLogger()

	// Initialize report cache
	reportCache := cache.NewReportCache(cacheTTL)
	defer reportCache.Stop()

	// Initialize rate limiter
	limiter := ratelimit.New(ratelimit.DefaultConfig())

	srv := &server{
		rule:    rule,
		store:   reportStore,
		cache:   reportCache,
		metrics: appMetrics,
		logger:  appLogger,
	}

	r := newRouter(srv, limiter)

	httpServer := &http.Server{
		Addr:              ":" + port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server starting", "port", port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	slog.Warn("Invalid duration, using default", "key", key, "value", v)
	return fallback
}

// newRouter assembles the middleware chain and routes.
func newRouter(srv *server, limiter *ratelimit.Limiter) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.RecoveryHandler())
	r.Use(apperrors.ErrorHandler())
	r.Use(monitoring.Middleware(srv.metrics, srv.logger))
	r.Use(security.SecurityHeadersMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", srv.handleHealth)

	api := r.Group("/api/v1")
	api.Use(limiter.Middleware())
	{
		api.GET("/components", srv.handleComponents)
		api.POST("/score", srv.handleScore)
		api.POST("/score/batch", srv.handleScoreBatch)
		api.POST("/validate", srv.handleValidate)
		api.GET("/reports", srv.handleListReports)
		api.GET("/reports/:id", srv.handleGetReport)
		api.GET("/metrics", srv.handleMetrics)
	}

	return r
}

// server bundles the handler dependencies.
type server struct {
	rule    trs.Rule
	store   *store.Store
	cache   *cache.ReportCache
	metrics *monitoring.Metrics
	logger  *monitoring.Logger
}

func (s *server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *server) handleComponents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"components":      s.rule.AllInfo(),
		"max_score":       trs.MaxScore,
		"risk_categories": trs.RiskCategories,
	})
}

func (s *server) handleScore(c *gin.Context) {
	var rec trs.Record
	if err := c.ShouldBindJSON(&rec); err != nil {
		c.Error(apperrors.NewValidationError("invalid patient record", err))
		return
	}

	result, err := s.rule.Score(rec)
	if err != nil {
		c.Error(err)
		return
	}

	s.metrics.RecordScore()
	s.logger.ScoreLogger(rec.ID, result.Total, result.Category.Name, result.Valid)
	c.JSON(http.StatusOK, result)
}

type batchRequest struct {
	Records []trs.Record `json:"records" binding:"required"`
}

func (s *server) handleScoreBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(apperrors.NewValidationError("invalid batch request", err))
		return
	}
	if len(req.Records) == 0 {
		c.Error(apperrors.NewValidationError("batch must contain at least one record"))
		return
	}

	items := trs.ScoreBatch(s.rule, req.Records)
	summary := trs.Summarize(items)

	s.metrics.RecordBatch()
	c.JSON(http.StatusOK, gin.H{
		"results": items,
		"summary": summary,
	})
}

type validateRequest struct {
	Records []trs.Record       `json:"records"`
	Config  *validation.Config `json:"config"`
}

func (s *server) handleValidate(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Error(apperrors.NewValidationError("unreadable request body", err))
		return
	}

	// Determinism makes the payload hash a safe cache key.
	cacheKey := cache.Key(body)
	if report, ok := s.cache.Get(cacheKey); ok {
		s.metrics.RecordCacheHit()
		c.JSON(http.StatusOK, report)
		return
	}
	s.metrics.RecordCacheMiss()

	// Decoding over the defaults merges a partial config: fields the
	// request leaves out keep their published values.
	cfg := validation.DefaultConfig()
	req := validateRequest{Config: &cfg}
	if err := bindJSON(body, &req); err != nil {
		c.Error(apperrors.NewValidationError("invalid validation request", err))
		return
	}

	co, err := cohort.New(req.Records)
	if err != nil {
		c.Error(err)
		return
	}

	validator, err := validation.New(cfg, slog.Default())
	if err != nil {
		c.Error(err)
		return
	}

	report, err := validator.Run(c.Request.Context(), co, s.rule)
	if err != nil {
		c.Error(err)
		return
	}

	if err := s.store.SaveReport(report); err != nil {
		// The report is already computed; persistence failure should
		// not cost the caller the result.
		slog.Error("Failed to persist report", "report_id", report.ID, "error", err)
	}
	s.cache.Set(cacheKey, report)

	s.metrics.RecordValidationRun()
	s.logger.ValidationLogger(report.ID, report.CohortSize, report.Iterations, report.Excluded, report.Duration)
	c.JSON(http.StatusOK, report)
}

func (s *server) handleListReports(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	listings, err := s.store.ListReports(limit)
	if err != nil {
		c.Error(apperrors.NewInternalError("failed to list reports", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": listings})
}

func (s *server) handleGetReport(c *gin.Context) {
	report, err := s.store.GetReport(c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.Snapshot())
}

func bindJSON(body []byte, dst interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
