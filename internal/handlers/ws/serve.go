package ws

import (
	"context"
	"errors"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

// Serve registers conn for userID and handles its frames until the socket
// closes. Binary frames are gzip-compressed JSON.
func (h *Hub) Serve(ctx context.Context, conn Conn, userID string, supportsGzip bool) {
	client := h.Register(userID, conn, supportsGzip)
	defer h.Unregister(client)

	log := h.log.With(zap.String("conn_id", client.ID), zap.String("user_id", userID))
	log.Info("socket connected")

	mctx := &MessageContext{Ctx: ctx, Client: client, Hub: h}
	for {
		messageType, messageBytes, err := conn.ReadMessage()
		if err != nil {
			log.Debug("socket read ended", zap.Error(err))
			break
		}

		if messageType == websocket.BinaryMessage {
			decompressed, err := DecompressMessage(messageBytes)
			if err != nil {
				_ = h.SendError(client, "decompression_failed", "Failed to decompress message", err.Error())
				continue
			}
			messageBytes = decompressed
		}

		msg, err := Deserialize(messageBytes)
		if err != nil {
			_ = h.SendError(client, "invalid_message", "Invalid message format", err.Error())
			continue
		}

		if err := msg.Process(mctx); err != nil {
			code := "processing_failed"
			switch {
			case errors.Is(err, ErrRoomRequired):
				code = "invalid_room"
			case errors.Is(err, ErrNotRoomMember):
				code = "forbidden"
			default:
				log.Warn("socket frame failed", zap.String("type", msg.GetType()), zap.Error(err))
			}
			_ = h.SendError(client, code, "Failed to process message", err.Error())
		}
	}

	log.Info("socket disconnected")
}
