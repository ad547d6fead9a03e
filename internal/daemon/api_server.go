package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"vidbatch/internal/api"
	"vidbatch/internal/encoding"
	"vidbatch/internal/logging"
	"vidbatch/internal/services"
)

const (
	// uploadBodyLimit caps request bodies, which bounds a single upload.
	uploadBodyLimit = 500 << 20
	shutdownTimeout = 5 * time.Second
	logWaitTimeout  = 10 * time.Second
	requestIDHeader = "X-Request-ID"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	app    *fiber.App

	listener net.Listener
}

func newAPIServer(bind string, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(bind),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	app := fiber.New(fiber.Config{
		AppName:               "vidbatch",
		BodyLimit:             uploadBodyLimit,
		DisableStartupMessage: true,
		UnescapePath:          true,
		ReadTimeout:           15 * time.Second,
		IdleTimeout:           60 * time.Second,
		ErrorHandler:          srv.handleError,
	})
	app.Use(recover.New())
	app.Use(srv.withRequestID)

	app.Get("/api/status", srv.handleStatus)
	app.Post("/api/scan", srv.handleScan)
	app.Get("/api/files", srv.handleFiles)
	app.Get("/api/batch", srv.handleBatch)
	app.Post("/api/batch", srv.handleStartBatch)
	app.Post("/api/batch/stop", srv.handleStopBatch)
	app.Get("/api/logs", srv.handleLogs)
	app.Get("/api/results", srv.handleResults)
	app.Get(api.ResultsPath+":name", srv.handleDownload)
	app.Post("/api/upload", srv.handleUpload)

	srv.app = app
	return srv
}

// ServeAPI starts the HTTP polling API on the configured bind address and
// returns the address it listens on. The server stops when ctx is cancelled
// or the daemon is closed.
func (d *Daemon) ServeAPI(ctx context.Context) (string, error) {
	if err := d.requireRunning("serve api"); err != nil {
		return "", err
	}
	srv := newAPIServer(d.cfg.Paths.APIBind, d, d.logger)
	serveCtx, cancel := context.WithCancel(ctx)
	context.AfterFunc(d.ctx, cancel)
	if err := srv.start(serveCtx); err != nil {
		cancel()
		return "", err
	}
	d.mu.Lock()
	d.api = srv
	d.mu.Unlock()
	return srv.listener.Addr().String(), nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		return services.Wrap(services.ErrConfiguration, "api", "listen", "paths.api_bind is empty", nil)
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.app.Listener(listener); err != nil {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		s.stop()
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.app == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.app.ShutdownWithContext(shutdownCtx); err != nil {
		s.logger.Warn("api shutdown incomplete", logging.Error(err))
	}
}

func (s *apiServer) withRequestID(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Get(requestIDHeader))
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDHeader, id)
	c.SetUserContext(services.WithRequestID(c.UserContext(), id))
	started := time.Now()
	err := c.Next()
	s.logger.Debug("api request",
		logging.String(logging.FieldCorrelationID, id),
		logging.String("method", c.Method()),
		logging.String("path", c.Path()),
		logging.Int("status", c.Response().StatusCode()),
		logging.Duration("elapsed", time.Since(started)),
	)
	return err
}

func (s *apiServer) handleStatus(c *fiber.Ctx) error {
	status := s.daemon.Status(c.UserContext())
	return c.JSON(api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		Files:        status.Files,
		FileCounts:   api.FileCounts(status.FileCounts),
		Batch:        api.FromBatchState(status.Batch),
		Dependencies: api.FromDependencies(status.Dependencies),
		LockFilePath: status.LockFilePath,
		HistoryPath:  status.HistoryPath,
		WorkDir:      status.WorkDir,
		OutputDir:    status.OutputDir,
	})
}

func (s *apiServer) handleScan(c *fiber.Ctx) error {
	var req api.ScanRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return s.writeError(c, fiber.StatusBadRequest, "invalid request body", "validation")
		}
	}
	files, err := s.daemon.Scan(c.UserContext(), req.Root)
	if err != nil {
		return err
	}
	return c.JSON(api.FileListResponse{Files: api.FromSourceFiles(files)})
}

func (s *apiServer) handleFiles(c *fiber.Ctx) error {
	return c.JSON(api.FileListResponse{Files: api.FromSourceFiles(s.daemon.Files())})
}

func (s *apiServer) handleBatch(c *fiber.Ctx) error {
	return c.JSON(api.BatchResponse{Batch: api.FromBatchState(s.daemon.BatchState())})
}

func (s *apiServer) handleStartBatch(c *fiber.Ctx) error {
	var req api.BatchRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return s.writeError(c, fiber.StatusBadRequest, "invalid request body", "validation")
		}
	}
	target := encoding.Target{Resolution: req.Resolution, FPS: req.FPS}
	if target.Resolution == 0 {
		target.Resolution = s.daemon.cfg.Encoder.DefaultResolution
	}
	if target.FPS == 0 {
		target.FPS = s.daemon.cfg.Encoder.DefaultFPS
	}
	state, err := s.daemon.StartBatch(target)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusAccepted).JSON(api.BatchResponse{Batch: api.FromBatchState(state)})
}

func (s *apiServer) handleStopBatch(c *fiber.Ctx) error {
	state := s.daemon.StopBatch()
	return c.Status(fiber.StatusAccepted).JSON(api.BatchResponse{Batch: api.FromBatchState(state)})
}

func (s *apiServer) handleLogs(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 0)
	if c.Query("since") == "" {
		events := s.daemon.Logs(limit)
		var next uint64
		if len(events) > 0 {
			next = events[len(events)-1].Sequence
		}
		return c.JSON(api.LogsResponse{Events: api.FromLogEvents(events), Next: next})
	}

	since, err := strconv.ParseUint(c.Query("since"), 10, 64)
	if err != nil {
		return services.Wrap(services.ErrValidation, "api", "logs", "since must be a non-negative integer", err)
	}
	ctx := c.UserContext()
	wait := c.QueryBool("wait", false)
	if wait {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, logWaitTimeout)
		defer cancel()
	}
	events, next, err := s.daemon.LogsSince(ctx, since, limit, wait)
	if err != nil {
		return err
	}
	return c.JSON(api.LogsResponse{Events: api.FromLogEvents(events), Next: next})
}

func (s *apiServer) handleResults(c *fiber.Ctx) error {
	return c.JSON(api.ResultsResponse{Results: api.FromResults(s.daemon.Results())})
}

func (s *apiServer) handleDownload(c *fiber.Ctx) error {
	name := c.Params("name")
	path, err := s.daemon.ResolveOutput(name)
	if err != nil {
		return err
	}
	return c.Download(path, name)
}

func (s *apiServer) handleUpload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return s.writeError(c, fiber.StatusBadRequest, "multipart field \"file\" is required", "validation")
	}
	content, err := header.Open()
	if err != nil {
		return s.writeError(c, fiber.StatusBadRequest, "upload could not be read", "validation")
	}
	defer content.Close()

	file, err := s.daemon.Upload(header.Filename, content)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(api.FileResponse{File: api.FromSourceFile(file)})
}

// handleError maps domain errors onto HTTP statuses. Every error body is
// {"error": "..."}.
func (s *apiServer) handleError(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return s.writeError(c, fiberErr.Code, fiberErr.Message, "")
	}
	code := services.ErrorCode(err)
	status := statusForCode(code)
	if status >= fiber.StatusInternalServerError {
		s.logger.Error("api request failed",
			logging.String(logging.FieldEventType, "api_request_failed"),
			logging.String(logging.FieldErrorCode, code),
			logging.String("path", c.Path()),
			logging.Error(err),
		)
	}
	return s.writeError(c, status, err.Error(), code)
}

func statusForCode(code string) int {
	switch code {
	case "invalid_path", "validation":
		return fiber.StatusBadRequest
	case "not_found":
		return fiber.StatusNotFound
	case "already_running":
		return fiber.StatusConflict
	case "configuration":
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *apiServer) writeError(c *fiber.Ctx, status int, message, code string) error {
	return c.Status(status).JSON(api.ErrorResponse{Error: message, Code: code})
}
