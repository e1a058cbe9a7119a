package inspect

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Message is one value on a watch stream.
type Message struct {
	Name  string          `json:"name"`
	Seq   uint64          `json:"seq"`
	Value json.RawMessage `json:"value"`
}

func (h *handler) watch(w http.ResponseWriter, r *http.Request) {
	e, ok := h.lookup(w, r)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", "store", e.Name, "error", err)
		return
	}
	defer conn.Close()

	logger := h.logger.With("store", e.Name, "conn", uuid.NewString())
	logger.Debug("watch opened", "remote", r.RemoteAddr)

	// Values are encoded on the store's goroutine so a later mutation of a
	// shared value cannot change what was observed.
	values := make(chan json.RawMessage, h.watchBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once
	unsub := e.Source.SubscribeAny(func(v any) {
		data, err := json.Marshal(v)
		if err != nil {
			logger.Warn("value not encodable", "error", err)
			return
		}
		select {
		case values <- data:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer unsub()

	// The reader only detects the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var seq uint64
	for {
		select {
		case data := <-values:
			seq++
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := conn.WriteJSON(Message{Name: e.Name, Seq: seq, Value: data}); err != nil {
				logger.Debug("watch write failed", "error", err)
				return
			}
		case <-overflow:
			logger.Warn("watch consumer too slow, closing")
			conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "too slow"))
			return
		case <-closed:
			logger.Debug("watch closed")
			return
		}
	}
}
