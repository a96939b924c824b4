package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/peterneubauer/savethesquare/internal/application"
	"github.com/peterneubauer/savethesquare/internal/domain/model"
	"github.com/peterneubauer/savethesquare/internal/domain/selection"
	"github.com/peterneubauer/savethesquare/internal/infrastructure/live"
)

// LiveHandler websocket endpoint streaming selection changes of one session
type LiveHandler struct {
	hub      *live.Hub
	sessions application.SelectionSessionService
	upgrader websocket.Upgrader
}

func NewLiveHandler(hub *live.Hub, sessions application.SelectionSessionService, allowedOrigins []string) *LiveHandler {
	return &LiveHandler{
		hub:      hub,
		sessions: sessions,
		upgrader: live.NewUpgrader(allowedOrigins),
	}
}

// selectionMessage payload of a "selection" message
type selectionMessage struct {
	Kind  selection.ChangeKind      `json:"kind"`
	State *application.SessionState `json:"state"`
}

// withoutDonated drops the donated index from per-change messages; clients get
// it with the initial state and refetch on donations_updated
func withoutDonated(state *application.SessionState) *application.SessionState {
	out := *state
	out.Donated = nil
	return &out
}

type textMessage struct {
	Text     string                  `json:"text"`
	Settings *model.TextModeSettings `json:"settings,omitempty"`
	Viewport *model.Viewport         `json:"viewport,omitempty"`
}

// ServeLive GET /api/live?session=
func (h *LiveHandler) ServeLive(c *gin.Context) {
	sessionID := c.Query("session")
	state, err := h.sessions.GetSession(sessionID)
	if err != nil {
		respondError(c, "unknown session", err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("⚠️ Live upgrade failed: %v", err)
		return
	}

	client := live.NewClient(h.hub, conn, sessionID)
	client.Start(h)

	unsubscribe, err := h.sessions.Subscribe(sessionID, func(kind selection.ChangeKind, state *application.SessionState) {
		client.SendJSON(live.MessageSelection, "", selectionMessage{Kind: kind, State: withoutDonated(state)})
	})
	if err != nil {
		client.SendError("", err.Error(), "SessionGone")
		return
	}
	client.OnClose(unsubscribe)
	client.SendJSON(live.MessageSelection, "", selectionMessage{Kind: "initial", State: state})
}

// HandleMessage dispatches client messages to the session service
func (h *LiveHandler) HandleMessage(c *live.Client, msg *live.Message) {
	sessionID := c.SessionID()
	switch msg.Type {
	case live.MessageClick:
		var req model.ClickRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.SendError(msg.ID, "invalid click payload", "InvalidPayload")
			return
		}
		resp, err := h.sessions.Click(sessionID, model.LatLng{Lat: req.Lat, Lng: req.Lng})
		if err != nil {
			c.SendError(msg.ID, err.Error(), http.StatusText(statusFor(err)))
			return
		}
		c.SendJSON(live.MessageClickResult, msg.ID, resp)

	case live.MessageText:
		var req textMessage
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			c.SendError(msg.ID, "invalid text payload", "InvalidPayload")
			return
		}
		if len([]rune(req.Text)) > maxTextLength {
			c.SendError(msg.ID, "text is too long", "InvalidPayload")
			return
		}
		if err := h.sessions.ScheduleText(context.Background(), sessionID, &req.Text, req.Viewport, req.Settings); err != nil {
			c.SendError(msg.ID, err.Error(), http.StatusText(statusFor(err)))
		}

	case live.MessageViewport:
		var vp model.Viewport
		if err := json.Unmarshal(msg.Data, &vp); err != nil {
			c.SendError(msg.ID, "invalid viewport payload", "InvalidPayload")
			return
		}
		if err := h.sessions.ScheduleText(context.Background(), sessionID, nil, &vp, nil); err != nil {
			c.SendError(msg.ID, err.Error(), http.StatusText(statusFor(err)))
		}

	case live.MessageClear:
		if err := h.sessions.Clear(sessionID); err != nil {
			c.SendError(msg.ID, err.Error(), http.StatusText(statusFor(err)))
		}

	default:
		c.SendError(msg.ID, "unknown message type "+msg.Type, "UnknownMessageType")
	}
}
