// ABOUTME: WebSocket voice sessions with a simulated speaking agent
// ABOUTME: Tracks per-session speaking state for the chat view's indicator

package voice

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Frame is one message on the voice socket, both directions.
type Frame struct {
	Type           string `json:"type"` // "utterance", "reply", "speaking", "done", "error"
	ConversationID string `json:"conversation_id,omitempty"`
	Text           string `json:"text,omitempty"`
}

// Responder produces the agent's reply to one user utterance. The default
// echoes in persona; deployments swap in a real agent.
type Responder func(conversationID, utterance string) string

// DefaultSpeakDelay is how long the simulated agent "speaks" each reply.
const DefaultSpeakDelay = 300 * time.Millisecond

// Hub upgrades voice connections and tracks which sessions are mid-reply.
type Hub struct {
	upgrader   websocket.Upgrader
	responder  Responder
	speakDelay time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	speaking int
}

// NewHub creates a voice hub. A nil responder installs the echo agent.
// Pass nil logger for slog.Default.
func NewHub(responder Responder, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if responder == nil {
		responder = echoResponder
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		responder:  responder,
		speakDelay: DefaultSpeakDelay,
		logger:     logger.With("component", "voice"),
	}
}

// SetSpeakDelay overrides how long replies stay in the speaking state.
func (h *Hub) SetSpeakDelay(d time.Duration) {
	h.speakDelay = d
}

// SpeechActive reports whether any session is currently speaking a reply.
func (h *Hub) SpeechActive() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.speaking > 0
}

func (h *Hub) startSpeaking() {
	h.mu.Lock()
	h.speaking++
	h.mu.Unlock()
}

func (h *Hub) stopSpeaking() {
	h.mu.Lock()
	if h.speaking > 0 {
		h.speaking--
	}
	h.mu.Unlock()
}

// HandleWS upgrades the request and runs the session loop until the peer
// disconnects.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("voice upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	h.logger.Info("voice session opened", "remote", r.RemoteAddr)
	defer h.logger.Info("voice session closed", "remote", r.RemoteAddr)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("voice session read error", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			h.writeFrame(conn, Frame{Type: "error", Text: "malformed frame"})
			continue
		}
		if frame.Type != "utterance" || strings.TrimSpace(frame.Text) == "" {
			continue
		}

		h.speak(conn, frame)
	}
}

// speak runs one reply turn: announce speaking, hold the flag for the
// simulated speech duration, then deliver the reply text and a done marker.
func (h *Hub) speak(conn *websocket.Conn, frame Frame) {
	h.startSpeaking()
	defer h.stopSpeaking()

	reply := h.responder(frame.ConversationID, frame.Text)

	h.writeFrame(conn, Frame{Type: "speaking", ConversationID: frame.ConversationID})
	time.Sleep(h.speakDelay)
	h.writeFrame(conn, Frame{
		Type:           "reply",
		ConversationID: frame.ConversationID,
		Text:           reply,
	})
	h.writeFrame(conn, Frame{Type: "done", ConversationID: frame.ConversationID})
}

func (h *Hub) writeFrame(conn *websocket.Conn, frame Frame) {
	if err := conn.WriteJSON(frame); err != nil {
		h.logger.Warn("voice write failed", "error", err)
	}
}

func echoResponder(_ string, utterance string) string {
	return "I heard you say: " + utterance
}
