// Package web exposes the tutoring session to the presentation layer:
// a small JSON API plus a websocket status feed.
package web

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/linguakit/lingua-live/pkg/hub"
	"github.com/linguakit/lingua-live/pkg/transcript"
	"github.com/linguakit/lingua-live/pkg/tutor"
)

// statusPushInterval is how often status snapshots are broadcast.
const statusPushInterval = 500 * time.Millisecond

// Server is the presentation-facing HTTP server.
type Server struct {
	app    *fiber.App
	port   string
	logger *slog.Logger

	manager *tutor.Manager
	log     *transcript.Log

	statusHub *hub.Hub
	stopPush  chan struct{}
}

// NewServer creates the web server around a session manager.
func NewServer(port string, manager *tutor.Manager, log *transcript.Log, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		port:      port,
		logger:    logger,
		manager:   manager,
		log:       log,
		statusHub: hub.New("status", logger),
		stopPush:  make(chan struct{}),
	}

	app := fiber.New(fiber.Config{
		AppName:               "lingua-live",
		DisableStartupMessage: true,
	})

	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/transcript", s.handleTranscript)
	api.Post("/session/start", s.handleSessionStart)
	api.Post("/session/stop", s.handleSessionStop)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start runs the server. Blocks until Shutdown.
func (s *Server) Start() error {
	go s.statusHub.Run()
	go s.pushLoop()

	s.logger.Info("web server listening", "port", s.port)
	return s.app.Listen(":" + s.port)
}

// StartAsync runs the server in a goroutine.
func (s *Server) StartAsync() {
	go func() {
		if err := s.Start(); err != nil {
			s.logger.Error("web server failed", "err", err)
		}
	}()
}

// pushLoop periodically broadcasts status snapshots to websocket clients.
func (s *Server) pushLoop() {
	ticker := time.NewTicker(statusPushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopPush:
			return
		case <-ticker.C:
			if s.statusHub.ClientCount() > 0 {
				s.statusHub.BroadcastJSON(s.statusSnapshot())
			}
		}
	}
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	select {
	case <-s.stopPush:
	default:
		close(s.stopPush)
	}
	s.statusHub.Stop()
	return s.app.Shutdown()
}
