package api

import (
	"context"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/david/topo-radar/internal/auth"
	"github.com/david/topo-radar/internal/db"
	"github.com/david/topo-radar/internal/ingest"
)

// Server exposes the latest pipeline output over HTTP and lets an
// admin trigger a fresh run. Read endpoints serve the artifacts the
// last run wrote; nothing is recomputed per request.
type Server struct {
	Store    *db.Store
	Pipeline *ingest.Pipeline
	Echo     *echo.Echo
	DB       *pgxpool.Pool

	jobMu      sync.Mutex
	runningJob *backgroundJob
}

type backgroundJob struct {
	ID        string             `json:"id"`
	Status    string             `json:"status"` // running, completed, failed
	StartedAt time.Time          `json:"started_at"`
	EndedAt   time.Time          `json:"ended_at,omitempty"`
	Result    any                `json:"result,omitempty"`
	Error     string             `json:"error,omitempty"`
	Cancel    context.CancelFunc `json:"-"`
}

func NewServer(pool *pgxpool.Pool, pipeline *ingest.Pipeline) *Server {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	allowedOrigins := []string{"http://localhost:4200"}
	if extra := os.Getenv("CORS_ORIGINS"); extra != "" {
		for _, o := range strings.Split(extra, ",") {
			o = strings.TrimSpace(o)
			if o != "" {
				allowedOrigins = append(allowedOrigins, o)
			}
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowedOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "X-Admin-Secret"},
	}))

	s := &Server{
		DB:       pool,
		Pipeline: pipeline,
		Echo:     e,
	}
	if pool != nil {
		s.Store = db.NewStore(pool)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.Echo.GET("/health", s.handleHealth)

	api := s.Echo.Group("/api/v1")
	api.GET("/opportunities", s.handleListOpportunities)
	api.GET("/matrix", s.artifactHandler(ingest.FilePriorityCSV, "text/csv"))
	api.GET("/sources", s.artifactHandler(ingest.FileSourcesCSV, "text/csv"))
	api.GET("/qc", s.artifactHandler(ingest.FileQCReport, echo.MIMEApplicationJSON))
	api.GET("/flow", s.artifactHandler(ingest.FileFlowGraph, echo.MIMEApplicationJSON))
	api.GET("/status", s.artifactHandler(ingest.FileAdapterStatus, echo.MIMEApplicationJSON))
	api.GET("/stats", s.artifactHandler(ingest.FileStatistics, echo.MIMEApplicationJSON))

	api.POST("/auth/token", s.handleIssueToken)

	admin := api.Group("/admin")
	admin.Use(auth.Middleware)
	admin.POST("/run", s.handleTriggerRun)
	admin.GET("/job/:id", s.handleJobStatus)
	admin.GET("/runs/latest", s.handleLatestRun)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

func (s *Server) handleIssueToken(c echo.Context) error {
	var req struct {
		Secret string `json:"secret"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := auth.VerifyAdminSecret(req.Secret); err != nil {
		if err == auth.ErrNotConfigured {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Admin auth not configured"})
		}
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid admin secret"})
	}

	token, err := auth.IssueToken()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Token issuance failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleListOpportunities(c echo.Context) error {
	if s.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Database not configured"})
	}

	params := db.ListParams{
		Segment:      c.QueryParam("segment"),
		Country:      c.QueryParam("country"),
		FiscalStatus: c.QueryParam("fiscal_status"),
	}
	if v, err := strconv.Atoi(c.QueryParam("min_score")); err == nil && v > 0 {
		params.MinScore = v
	}
	if v, err := strconv.Atoi(c.QueryParam("limit")); err == nil && v > 0 {
		params.Limit = v
	}
	if v, err := strconv.Atoi(c.QueryParam("offset")); err == nil && v >= 0 {
		params.Offset = v
	}

	opps, err := s.Store.ListOpportunities(c.Request().Context(), params)
	if err != nil {
		c.Logger().Errorf("Failed to list opportunities: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal Server Error"})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"total":         len(opps),
		"opportunities": opps,
	})
}

// artifactHandler serves a file the last pipeline run wrote.
func (s *Server) artifactHandler(name, contentType string) echo.HandlerFunc {
	return func(c echo.Context) error {
		path := filepath.Join(s.Pipeline.DataDir, name)
		if _, err := os.Stat(path); err != nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "No pipeline run has produced this artifact yet"})
		}
		c.Response().Header().Set(echo.HeaderContentType, contentType)
		return c.File(path)
	}
}

func (s *Server) handleLatestRun(c echo.Context) error {
	if s.Store == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Database not configured"})
	}
	run, err := s.Store.LatestRun(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if run == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "no runs recorded"})
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleTriggerRun(c echo.Context) error {
	s.jobMu.Lock()
	if s.runningJob != nil && s.runningJob.Status == "running" {
		job := s.runningJob
		s.jobMu.Unlock()
		return c.JSON(http.StatusConflict, map[string]any{
			"error":  "A pipeline run is already in progress",
			"job_id": job.ID,
		})
	}

	// context.WithoutCancel detaches from the HTTP lifecycle but
	// preserves trace values; the timeout is our own backstop.
	jobCtx, jobCancel := context.WithTimeout(
		context.WithoutCancel(c.Request().Context()), 30*time.Minute,
	)

	jobID := uuid.New().String()[:8]
	job := &backgroundJob{
		ID:        jobID,
		Status:    "running",
		StartedAt: time.Now(),
		Cancel:    jobCancel,
	}
	s.runningJob = job
	s.jobMu.Unlock()

	go func() {
		defer jobCancel()

		res, err := s.Pipeline.Run(jobCtx)
		s.jobMu.Lock()
		defer s.jobMu.Unlock()
		job.EndedAt = time.Now()
		if err != nil {
			job.Status = "failed"
			job.Error = err.Error()
			log.Printf("[run-job %s] failed: %v", jobID, err)
			return
		}
		job.Status = "completed"
		job.Result = map[string]any{
			"run_id":                res.RunID,
			"total_count":           res.Dataset.Meta.TotalCount,
			"suppressed_duplicates": res.Dataset.Meta.SuppressedDuplicates,
			"filtered_off_domain":   res.Dataset.Meta.FilteredOffDomain,
			"qc_status":             res.Report.Status,
		}
		log.Printf("[run-job %s] completed: run=%s records=%d qc=%s",
			jobID, res.RunID, res.Dataset.Meta.TotalCount, res.Report.Status)
	}()

	return c.JSON(http.StatusAccepted, map[string]any{
		"message": "Pipeline run started",
		"job_id":  jobID,
		"poll":    "/api/v1/admin/job/" + jobID,
	})
}

func (s *Server) handleJobStatus(c echo.Context) error {
	queried := c.Param("id")
	s.jobMu.Lock()
	defer s.jobMu.Unlock()

	job := s.runningJob
	if job == nil || job.ID != queried {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "job not found"})
	}

	resp := map[string]any{
		"id":         job.ID,
		"status":     job.Status,
		"started_at": job.StartedAt,
	}
	if !job.EndedAt.IsZero() {
		resp["ended_at"] = job.EndedAt
		resp["duration"] = job.EndedAt.Sub(job.StartedAt).String()
	}
	if job.Result != nil {
		resp["result"] = job.Result
	}
	if job.Error != "" {
		resp["error"] = job.Error
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) Start(port string) error {
	return s.Echo.Start(":" + port)
}
