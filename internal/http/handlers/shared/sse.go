package shared

import (
	"encoding/json"
	"io"
	"time"

	"github.com/vaultpass/internal/notifier"

	"github.com/gin-gonic/gin"
)

const sseHeartbeatInterval = 30 * time.Second

// StreamEvents 把变更事件作为 SSE 流写给客户端，直到客户端断开。
// 事件是尽力而为投递的，客户端漏掉后应重新拉取列表补齐。
func StreamEvents(c *gin.Context, hub *notifier.Hub) {
	events, cancel := hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			payload, err := json.Marshal(event)
			if err != nil {
				return true
			}
			c.SSEvent("certificate_change", string(payload))
			return true
		case <-time.After(sseHeartbeatInterval):
			c.SSEvent("heartbeat", time.Now().Unix())
			return true
		}
	})
}
