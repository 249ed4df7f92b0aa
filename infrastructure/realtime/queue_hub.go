package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"tubequeue/domain/model"
	"tubequeue/infrastructure/logger"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// Hub fans queue events out to every connected display client over SSE.
type Hub struct {
	mu   sync.RWMutex
	subs map[chan model.QueueEvent]struct{}
}

func NewQueueHub() *Hub {
	return &Hub{subs: make(map[chan model.QueueEvent]struct{})}
}

// Serve streams queue events until the client disconnects.
func (h *Hub) Serve(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering
	c.Status(http.StatusOK)

	ch := make(chan model.QueueEvent, 8)
	h.addSubscriber(ch)
	logger.GetLogger().WithField("subscribers", h.Subscribers()).Debug("display client connected")
	defer func() {
		h.removeSubscriber(ch)
		logger.GetLogger().WithField("subscribers", h.Subscribers()).Debug("display client disconnected")
	}()

	// Initial comment to keep connection open
	_, _ = c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-ticker.C:
			_, _ = c.Writer.Write([]byte(":ping\n\n"))
			c.Writer.Flush()
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", evt.Type, data)
			c.Writer.Flush()
		}
	}
}

func (h *Hub) addSubscriber(ch chan model.QueueEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[ch] = struct{}{}
}

func (h *Hub) removeSubscriber(ch chan model.QueueEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Publish never blocks; slow clients miss events.
func (h *Hub) Publish(_ context.Context, evt *model.QueueEvent) error {
	if evt == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.subs {
		select { // non-blocking
		case ch <- *evt:
		default:
		}
	}
	return nil
}
