package channel

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/atelierforma/formabot/internal/bus"
	"github.com/atelierforma/formabot/internal/config"
	"github.com/coder/websocket"
)

//go:embed static
var staticFiles embed.FS

const webUIChannelName = "webui"

type wsMessage struct {
	Type       string        `json:"type"`
	Content    string        `json:"content,omitempty"`
	CourseID   string        `json:"course_id,omitempty"`
	SessionID  string        `json:"session_id,omitempty"`
	Confidence float64       `json:"confidence,omitempty"`
	Source     string        `json:"source,omitempty"`
	Fallback   bool          `json:"fallback,omitempty"`
	ToolCalls  []AskToolCall `json:"tool_calls,omitempty"`
}

// outboundWSMessage renders a bus reply for the websocket, keeping the
// provenance metadata so the widget can flag degraded answers like the
// /api/chat path does.
func outboundWSMessage(msg bus.OutboundMessage) wsMessage {
	out := wsMessage{Type: "message", Content: msg.Content}
	if v, ok := msg.Metadata["confidence"].(float64); ok {
		out.Confidence = v
	}
	if v, ok := msg.Metadata["source"].(string); ok {
		out.Source = v
	}
	if v, ok := msg.Metadata["fallback"].(bool); ok {
		out.Fallback = v
	}
	if v, ok := msg.Metadata["toolCalls"].([]AskToolCall); ok {
		out.ToolCalls = v
	}
	return out
}

type wsClient struct {
	conn *websocket.Conn
	id   string
}

// WebUIChannel serves the chat widget: a websocket for the embedded page
// and a JSON endpoint for hosts that prefer plain POSTs. The POST path
// goes through the injected AskFunc so the caller gets the confidence and
// provenance metadata back.
type WebUIChannel struct {
	BaseChannel
	host    string
	port    int
	ask     AskFunc
	server  *http.Server
	clients sync.Map
	nextID  atomic.Int64
}

func NewWebUIChannel(cfg config.WebUIConfig, gwCfg config.GatewayConfig, b *bus.MessageBus, ask AskFunc) (*WebUIChannel, error) {
	port := gwCfg.Port
	if port == 0 {
		port = config.DefaultPort
	}

	ch := &WebUIChannel{
		BaseChannel: NewBaseChannel(webUIChannelName, b, cfg.AllowFrom),
		host:        gwCfg.Host,
		port:        port,
		ask:         ask,
	}
	return ch, nil
}

func (w *WebUIChannel) Start(ctx context.Context) error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("embed static fs: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/", http.FileServer(http.FS(staticFS)))
	mux.HandleFunc("/ws", w.handleWS)
	mux.HandleFunc("/api/chat", w.handleChat)

	w.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", w.host, w.port),
		Handler: mux,
	}

	go func() {
		log.Printf("[webui] listening on %s", w.server.Addr)
		if err := w.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[webui] server error: %v", err)
		}
	}()

	return nil
}

type chatRequestBody struct {
	Message   string `json:"message"`
	CourseID  string `json:"course_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

func (w *WebUIChannel) handleChat(wr http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(wr, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if w.ask == nil {
		http.Error(wr, "chat unavailable", http.StatusServiceUnavailable)
		return
	}

	var body chatRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Message == "" {
		http.Error(wr, "invalid request", http.StatusBadRequest)
		return
	}

	sessionID := body.SessionID
	if sessionID == "" {
		sessionID = fmt.Sprintf("webui-%d", w.nextID.Add(1))
	}

	resp := w.ask(r.Context(), AskRequest{
		SessionID: webUIChannelName + ":" + sessionID,
		Message:   body.Message,
		CourseID:  body.CourseID,
	})

	wr.Header().Set("Content-Type", "application/json")
	out := struct {
		AskResponse
		SessionID string `json:"session_id"`
	}{AskResponse: resp, SessionID: sessionID}
	if err := json.NewEncoder(wr).Encode(out); err != nil {
		log.Printf("[webui] encode chat response: %v", err)
	}
}

func (w *WebUIChannel) handleWS(wr http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(wr, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("[webui] websocket accept error: %v", err)
		return
	}

	clientID := fmt.Sprintf("webui-%d", w.nextID.Add(1))
	client := &wsClient{conn: conn, id: clientID}
	w.clients.Store(clientID, client)
	log.Printf("[webui] client connected: %s", clientID)

	defer func() {
		w.clients.Delete(clientID)
		conn.CloseNow()
		log.Printf("[webui] client disconnected: %s", clientID)
	}()

	for {
		_, data, err := conn.Read(r.Context())
		if err != nil {
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		if msg.Type != "message" || msg.Content == "" {
			continue
		}

		if !w.IsAllowed(clientID) {
			log.Printf("[webui] rejected message from %s", clientID)
			continue
		}

		w.bus.Inbound <- bus.InboundMessage{
			Channel:   webUIChannelName,
			SenderID:  clientID,
			ChatID:    clientID,
			Content:   msg.Content,
			CourseID:  msg.CourseID,
			Timestamp: time.Now(),
		}
	}
}

func (w *WebUIChannel) Send(msg bus.OutboundMessage) error {
	data, err := json.Marshal(outboundWSMessage(msg))
	if err != nil {
		return err
	}

	client, ok := w.clients.Load(msg.ChatID)
	if !ok {
		// Broadcast to all clients if no specific target
		w.clients.Range(func(key, value any) bool {
			c := value.(*wsClient)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = c.conn.Write(ctx, websocket.MessageText, data)
			return true
		})
		return nil
	}

	c := client.(*wsClient)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.conn.Write(ctx, websocket.MessageText, data)
}

func (w *WebUIChannel) Stop() error {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			log.Printf("[webui] shutdown error: %v", err)
		}
	}
	w.clients.Range(func(key, value any) bool {
		c := value.(*wsClient)
		c.conn.CloseNow()
		return true
	})
	log.Printf("[webui] stopped")
	return nil
}
