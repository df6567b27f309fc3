// Package server is the HTTP front-end of the validation pipeline: file
// upload, batch jobs with live progress, and single-address verification.
package server

import (
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/optimode/verifykit"
	"github.com/optimode/verifykit/config"
)

// Server wires the verification pipeline behind a fiber app.
type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	verifier *verifykit.Verifier
	jobs     *jobStore
	app      *fiber.App
}

func New(cfg *config.Config, log *logrus.Logger) *Server {
	return NewWithVerifier(cfg, log, verifykit.New(verifykit.Options{
		ConcurrentLimit: cfg.ConcurrentLimit,
		RateLimitDelay:  cfg.RateLimitDelay,
		SMTPTimeout:     cfg.SMTPTimeout,
		DNSTimeout:      cfg.DNSTimeout,
		HeloDomain:      cfg.HeloDomain,
		MailFrom:        cfg.MailFrom,
		StopOnNoUser:    cfg.StopOnNoUser,
	}))
}

// NewWithVerifier is like New but takes the verifier to serve. Tests inject
// one with mocked DNS and SMTP here.
func NewWithVerifier(cfg *config.Config, log *logrus.Logger, v *verifykit.Verifier) *Server {
	s := &Server{
		cfg:      cfg,
		log:      log,
		verifier: v,
		jobs:     newJobStore(),
	}

	s.app = fiber.New(fiber.Config{
		AppName: "verifykitd",
		// Uploaded address lists are small text files; 20MB is plenty
		// for 50k lines.
		BodyLimit: 20 * 1024 * 1024,
	})
	s.routes()
	return s
}

func (s *Server) routes() {
	s.app.Use(recover.New())

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "running"})
	})

	api := s.app.Group("/api", fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	api.Post("/verify", s.handleVerifyOne)
	api.Post("/verify/batch", s.handleVerifyBatch)
	api.Post("/verify/upload", s.handleUpload)
	api.Get("/jobs/:id", s.handleGetJob)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	s.app.Get("/ws/jobs/:id", websocket.New(s.handleJobWS))

	s.app.Static("/", s.cfg.StaticDir)
}

// App exposes the fiber app for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP until Shutdown is called.
func (s *Server) Listen() error {
	return s.app.Listen(":" + s.cfg.ServerPort)
}

// Shutdown gracefully stops the HTTP listener. Running jobs keep running
// to completion in their goroutines; their sockets are bounded by the
// per-probe deadline.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
