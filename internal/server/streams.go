package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/menuya/internal/authorization"
	"github.com/smallbiznis/menuya/internal/realtime"
	"go.uber.org/zap"
)

// StreamPendingOrders streams a station's pending orders. Station roles may
// only watch their own queue.
func (s *Server) StreamPendingOrders(c *gin.Context) {
	if s.streams == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	role, ok := authorization.ParseRole(c.Param("role"))
	if !ok {
		AbortWithError(c, newValidationError("role", "invalid_role", "invalid role"))
		return
	}
	hub, ok := s.streams.Pending(role)
	if !ok {
		AbortWithError(c, ErrNotFound)
		return
	}
	actor, _ := actorFromContext(c)
	if stationOf(actor.Role) != "" && actor.Role != role {
		AbortWithError(c, ErrForbidden)
		return
	}

	streamConcern(c, hub, s.heartbeat, s.log)
}

func (s *Server) StreamTables(c *gin.Context) {
	if s.streams == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	streamConcern(c, s.streams.Tables(), s.heartbeat, s.log)
}

func (s *Server) StreamDeliveryAccounts(c *gin.Context) {
	if s.streams == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}
	streamConcern(c, s.streams.DeliveryAccounts(), s.heartbeat, s.log)
}

// streamConcern writes every view the hub hands out as a server-sent event
// until the client goes away or the hub closes.
func streamConcern[T any](c *gin.Context, hub *realtime.Hub[T], heartbeatEvery time.Duration, log *zap.Logger) {
	ctx := c.Request.Context()

	subscription, err := hub.Subscribe(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatEvery)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case view, open := <-subscription.Updates():
			if !open {
				return
			}
			if err := writeView(writer, hub.Name(), view); err != nil {
				log.Debug("stream client gone", zap.String("concern", hub.Name()), zap.Error(err))
				return
			}
			flusher.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(writer, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeView(w io.Writer, concern string, view any) error {
	data, err := json.Marshal(view)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", concern, data)
	return err
}
