package controller

import (
	"context"
	"sync"

	"launchpad/metrics"
	"launchpad/middleware"
	"launchpad/models"
	"launchpad/realtime"
	"launchpad/session"
	"launchpad/transcript"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

const sessionSendBuffer = 128

type SessionController struct {
	Deps   session.Deps
	Logger *logrus.Entry
}

func NewSessionController(deps session.Deps, logger *logrus.Entry) *SessionController {
	return &SessionController{
		Deps:   deps,
		Logger: logger,
	}
}

// ClientFrame is what the browser sends over the Oracle websocket.
type ClientFrame struct {
	Type string `json:"type"` // "input" or "roster"
	Text string `json:"text,omitempty"`
}

// ServerFrame is pushed to the browser.
type ServerFrame struct {
	Type        string                    `json:"type"` // "entry", "roster" or "error"
	Entry       *transcript.Entry         `json:"entry,omitempty"`
	Roster      []realtime.PresenceRecord `json:"roster,omitempty"`
	OnlineCount int                       `json:"online_count,omitempty"`
	Error       string                    `json:"error,omitempty"`
}

// Upgrade rejects plain HTTP requests and carries the caller's profile into
// the websocket handler.
func (sc *SessionController) Upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	profile, ok := middleware.CurrentProfile(c)
	if !ok {
		return fiber.ErrUnauthorized
	}
	c.Locals("session_profile", profile)
	return c.Next()
}

// HandleSession runs one Oracle session for the connection's lifetime.
// Inputs are dispatched concurrently; every transcript entry is pushed in
// append order by a single writer.
func (sc *SessionController) HandleSession(c *websocket.Conn) {
	defer c.Close()

	profile, ok := c.Locals("session_profile").(models.Profile)
	if !ok {
		_ = c.WriteJSON(ServerFrame{Type: "error", Error: "Authorization required"})
		return
	}
	logger := sc.Logger.WithField("actor", profile.ID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess, err := session.Open(ctx, sc.Deps, profile)
	if err != nil {
		logger.WithError(err).Error("Failed to open session")
		_ = c.WriteJSON(ServerFrame{Type: "error", Error: "Could not start the Oracle session"})
		return
	}
	defer func() {
		if err := sess.Close(context.Background()); err != nil {
			logger.WithError(err).Warn("Session close failed")
		}
	}()

	send := make(chan ServerFrame, sessionSendBuffer)
	done := make(chan struct{})
	push := func(f ServerFrame) {
		select {
		case send <- f:
		case <-done:
		default:
			metrics.RealtimeEvents.WithLabelValues("session_frame", "dropped").Inc()
		}
	}

	backlog := sess.Transcript().Follow(func(e transcript.Entry) {
		entry := e
		push(ServerFrame{Type: "entry", Entry: &entry})
	})

	var writer sync.WaitGroup
	writer.Add(1)
	go func() {
		defer writer.Done()
		for i := range backlog {
			if err := c.WriteJSON(ServerFrame{Type: "entry", Entry: &backlog[i]}); err != nil {
				cancel()
				return
			}
		}
		for {
			select {
			case f := <-send:
				if err := c.WriteJSON(f); err != nil {
					logger.WithError(err).Debug("Websocket write failed")
					cancel()
					return
				}
			case <-done:
				return
			}
		}
	}()

	var inflight sync.WaitGroup
	for ctx.Err() == nil {
		var in ClientFrame
		if err := c.ReadJSON(&in); err != nil {
			logger.WithError(err).Debug("Websocket closed")
			break
		}
		switch in.Type {
		case "input":
			inflight.Add(1)
			go func(text string) {
				defer inflight.Done()
				sess.Submit(ctx, text)
			}(in.Text)
		case "roster":
			push(ServerFrame{Type: "roster", Roster: sess.Roster(), OnlineCount: sess.OnlineCount()})
		default:
			push(ServerFrame{Type: "error", Error: "unknown frame type " + in.Type})
		}
	}

	cancel()
	inflight.Wait()
	close(done)
	writer.Wait()
}
