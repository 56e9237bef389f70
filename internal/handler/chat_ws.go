package handler

import (
	"context"
	"encoding/json"
	"time"

	"sinedi/internal/middleware"
	"sinedi/internal/service"
	"sinedi/internal/ws"
	"sinedi/pkg/logger"

	"github.com/gin-gonic/gin"
)

const chatSendTimeout = 10 * time.Second

// UpgradeChatWS joins the caller to the chat room of ?job_id=. Inbound
// {"type":"message","text":...} frames are stored through the chat service,
// which broadcasts them to the room; failures are reported to the sender only.
func UpgradeChatWS(chat *service.ChatService, rooms *ws.ChatHub) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.GetUser(c)
		jobID := c.Query("job_id")
		if jobID == "" {
			c.JSON(400, gin.H{"error": "job_id required"})
			return
		}
		if _, err := chat.Authorize(c.Request.Context(), user, jobID); err != nil {
			respondError(c, err)
			return
		}
		conn, err := ws.Upgrade(c.Writer, c.Request)
		if err != nil {
			return
		}
		defer conn.Close()

		client := ws.NewClient(user.ID, user.Role)
		rooms.GetOrCreateRoom(jobID).Join(client)
		defer rooms.Leave(jobID, client)

		ws.Serve(conn, client, func(raw []byte) {
			var msg struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}
			if json.Unmarshal(raw, &msg) != nil || msg.Type != "message" {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), chatSendTimeout)
			defer cancel()
			if _, err := chat.Send(ctx, user, jobID, msg.Text); err != nil {
				if statusFor(err) >= 500 {
					logger.WithField("job_id", jobID).Errorf("[chat] send failed: %v", err)
				}
				client.Push(gin.H{"type": "error", "error": err.Error()})
			}
		})
	}
}

// UpgradeLiveWS registers the caller on the live feed hub, which receives
// job and notification updates addressed to the user or their role.
func UpgradeLiveWS(hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.GetUser(c)
		conn, err := ws.Upgrade(c.Writer, c.Request)
		if err != nil {
			return
		}
		defer conn.Close()

		client := ws.NewClient(user.ID, user.Role)
		hub.Register(client)
		logger.WithField("user_id", user.ID).Debugf("[live] connected, %d clients", hub.ClientCount())
		ws.Serve(conn, client, nil)
	}
}
