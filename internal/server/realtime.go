package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/streamhub/internal/realtime"
)

// StreamChanges streams committed changes on one table as server-sent
// events. Rows owned by users are filtered to the caller.
func (s *Server) StreamChanges(c *gin.Context) {
	if s.changes == nil {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	userID, ok := callerID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	table := strings.TrimSpace(c.Param("table"))
	if !realtime.IsKnownTable(table) {
		AbortWithError(c, realtime.ErrInvalidTable)
		return
	}

	filter := realtime.Filter{Table: table}
	if isUserScopedTable(table) {
		filter.UserID = userID
	}

	subscription, err := s.changes.Subscribe(filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	defer subscription.Close()

	writer := c.Writer
	flusher, ok := writer.(http.Flusher)
	if !ok {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	headers := writer.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	if _, err := io.WriteString(writer, "retry: 2000\n\n"); err != nil {
		return
	}
	flusher.Flush()

	ctx := c.Request.Context()
	interval := s.heartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	heartbeat := time.NewTicker(interval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case change, open := <-subscription.Events():
			if !open {
				return
			}
			if err := writeChange(writer, change); err != nil {
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

func isUserScopedTable(table string) bool {
	switch table {
	case realtime.TableTasks, realtime.TableUserSubscriptions, realtime.TableWatchHistory:
		return true
	}
	return false
}

func writeChange(w io.Writer, change realtime.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", strings.ToLower(string(change.Op)), data)
	return err
}
