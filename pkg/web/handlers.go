package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/linguakit/lingua-live/pkg/hub"
	"github.com/linguakit/lingua-live/pkg/tutor"
)

// statusView is the status document served to the presentation layer.
type statusView struct {
	tutor.Status
	// Listening mirrors the open state in presentation terms.
	Listening       bool `json:"listening"`
	TranscriptCount int  `json:"transcript_count"`
}

func (s *Server) statusSnapshot() statusView {
	status := s.manager.Status()
	return statusView{
		Status:          status,
		Listening:       status.State == tutor.StateOpen,
		TranscriptCount: s.log.Len(),
	}
}

// handleStatus returns the current session status.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.statusSnapshot())
}

// handleTranscript returns the ordered transcript.
func (s *Server) handleTranscript(c *fiber.Ctx) error {
	return c.JSON(s.log.Entries())
}

// handleSessionStart starts a session.
func (s *Server) handleSessionStart(c *fiber.Ctx) error {
	if err := s.manager.Start(); err != nil {
		return c.Status(fiber.StatusPreconditionFailed).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(s.statusSnapshot())
}

// handleSessionStop stops the session.
func (s *Server) handleSessionStop(c *fiber.Ctx) error {
	s.manager.Stop()
	return c.JSON(s.statusSnapshot())
}

// handleStatusWS streams status snapshots over a websocket.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	client := hub.NewClient(s.statusHub, c)
	client.Run()
}
