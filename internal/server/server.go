// Package server exposes the analysis core as a JSON API over fiber.
package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/KaramelBytes/datahub-cli/internal/chart"
	"github.com/KaramelBytes/datahub-cli/internal/dataset"
	"github.com/KaramelBytes/datahub-cli/internal/predict"
	"github.com/KaramelBytes/datahub-cli/internal/session"
)

// Options carries the per-request defaults taken from configuration.
type Options struct {
	Load        dataset.LoadOptions
	Predict     predict.Options
	ChartWidth  int
	ChartHeight int
	BodyLimit   int // bytes; 0 keeps fiber's default
}

// Server wires the session store to HTTP routes.
type Server struct {
	app   *fiber.App
	store *session.Store
	opt   Options
	log   *slog.Logger
}

// New builds the fiber app and registers every route under /api.
func New(store *session.Store, opt Options, log *slog.Logger) *Server {
	s := &Server{store: store, opt: opt, log: log}
	s.app = fiber.New(fiber.Config{
		AppName:               "DataHub",
		DisableStartupMessage: true,
		BodyLimit:             opt.BodyLimit,
		ErrorHandler:          s.handleError,
	})
	s.app.Use(recover.New())
	s.app.Use(cors.New())
	s.app.Use(s.logRequests)

	api := s.app.Group("/api")
	api.Get("/healthz", s.healthz)
	api.Post("/sessions", s.createSession)
	api.Get("/sessions/:id", s.getSession)
	api.Delete("/sessions/:id", s.deleteSession)
	api.Put("/sessions/:id/dataset", s.replaceDataset)
	api.Get("/sessions/:id/describe", s.describe)
	api.Get("/sessions/:id/head", s.head)
	api.Get("/sessions/:id/tail", s.tail)
	api.Get("/sessions/:id/value-counts", s.valueCounts)
	api.Post("/sessions/:id/aggregate", s.aggregate)
	api.Post("/sessions/:id/chart", s.chartImage)
	api.Post("/sessions/:id/predict", s.predict)
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Listen serves until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.Info("listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	if err != nil {
		status = statusFor(err)
	}
	s.log.Info("request",
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start))
	return err
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := statusFor(err)
	if code >= fiber.StatusInternalServerError {
		s.log.Error("request failed", "path", c.Path(), "err", err)
	}
	return c.Status(code).JSON(errorBody{Error: err.Error()})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var (
		fe    *fiber.Error
		parse *dataset.ParseError
		miss  *dataset.MissingColumnError
		typ   *dataset.TypeMismatchError
		empty *dataset.EmptySelectionError
		field *chart.FieldError
	)
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, session.ErrNotFound), errors.As(err, &miss):
		return fiber.StatusNotFound
	case errors.As(err, &parse), errors.As(err, &typ), errors.Is(err, dataset.ErrEmpty):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &empty), errors.As(err, &field),
		errors.Is(err, predict.ErrMissingValues), errors.Is(err, predict.ErrTooFewRows),
		errors.Is(err, chart.ErrNoData), errors.Is(err, errBadRequest):
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}
