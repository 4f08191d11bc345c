package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/exp/slog"
	"nhooyr.io/websocket"

	"spratt/internal/app/client/ingest"
	"spratt/internal/app/client/syncer"
)

const (
	EventSyncStatus        = "sync.status"
	EventRecordingIngested = "recording.ingested"

	sendBuffer   = 32
	writeTimeout = 5 * time.Second
)

// Envelope сообщение, уходящее в websocket
type Envelope struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp int64       `json:"timestamp"`
}

// Source то, на что может подписаться хаб
type Source interface {
	AddListener(fn syncer.Listener) func()
	AddIngestListener(fn syncer.IngestListener) func()
}

type client struct {
	send chan []byte
}

// Hub рассылает события синхронизации локальным UI клиентам
type Hub struct {
	log *slog.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		log:     log.With("component", "notify_hub"),
		clients: make(map[*client]struct{}),
	}
}

// Attach подписывает хаб на источник, возвращает функцию отписки
func (h *Hub) Attach(src Source) func() {
	offStatus := src.AddListener(func(st syncer.Status) {
		h.Broadcast(EventSyncStatus, st)
	})
	offIngest := src.AddIngestListener(func(r ingest.Receipt) {
		h.Broadcast(EventRecordingIngested, r)
	})

	return func() {
		offStatus()
		offIngest()
	}
}

// Broadcast отправляет событие всем подключенным клиентам. Медленные клиенты отключаются.
func (h *Hub) Broadcast(eventType string, data interface{}) {
	msg, err := json.Marshal(Envelope{Type: eventType, Data: data, Timestamp: time.Now().UnixMilli()})
	if err != nil {
		h.log.Error("failed to marshal event", "type", eventType, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if eventType == EventSyncStatus {
		h.last = msg
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("client too slow, dropping")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP принимает websocket подключение. Новый клиент сразу получает последний статус.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "")

	c := &client{send: make(chan []byte, sendBuffer)}
	h.register(c)
	defer h.unregister(c)

	// входящие сообщения не ожидаются
	ctx := conn.CloseRead(r.Context())

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "too slow")
				return
			}
			if err := h.write(ctx, conn, msg); err != nil {
				h.log.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}

func (h *Hub) write(ctx context.Context, conn *websocket.Conn, msg []byte) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.clients[c] = struct{}{}
	if h.last != nil {
		c.send <- h.last
	}
	h.log.Debug("client connected", "total", len(h.clients))
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.log.Debug("client disconnected", "total", len(h.clients))
}
