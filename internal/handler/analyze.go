package handler

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"detectboard/internal/dto"
	"detectboard/internal/logger"
	"detectboard/internal/service"

	gorilla "github.com/gorilla/websocket"
)

const analyzeWriteWait = 10 * time.Second

// AnalyzeWebsocketHandler handles /api/analyze. The client sends one
// dto.AnalyzeRequest; the server answers with "chunk" messages as the
// description streams in, then a single "done" or "error". Closing the
// socket cancels the upstream request.
func AnalyzeWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		var req dto.AnalyzeRequest
		if err := connection.ReadJSON(&req); err != nil {
			logger.Warning("Invalid analyze request: %v", err)
			sendAnalyze(connection, dto.AnalyzeMessage{Type: dto.AnalyzeError, Error: "invalid request"})
			return
		}

		image, mime, err := decodeImage(req.Image, req.Mime)
		if err != nil {
			sendAnalyze(connection, dto.AnalyzeMessage{Type: dto.AnalyzeError, Error: err.Error()})
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Jedyny czytelnik po pierwszej wiadomości; zamknięcie gniazda anuluje ctx
		go func() {
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					cancel()
					return
				}
			}
		}()

		chunks, err := manager.Analyze(ctx, image, mime, req.Prompt)
		if err != nil {
			sendAnalyzeError(connection, logger, err)
			return
		}

		for chunk := range chunks {
			if chunk.Err != nil {
				sendAnalyzeError(connection, logger, chunk.Err)
				return
			}
			if err := sendAnalyze(connection, dto.AnalyzeMessage{Type: dto.AnalyzeChunk, Text: chunk.Text}); err != nil {
				logger.Info("Analyze client went away: %v", err)
				cancel()
				for range chunks {
				}
				return
			}
		}

		if ctx.Err() != nil {
			return
		}
		sendAnalyze(connection, dto.AnalyzeMessage{Type: dto.AnalyzeDone})
		connection.WriteControl(gorilla.CloseMessage,
			gorilla.FormatCloseMessage(gorilla.CloseNormalClosure, ""), time.Now().Add(time.Second))
	}
}

func sendAnalyze(connection *gorilla.Conn, msg dto.AnalyzeMessage) error {
	connection.SetWriteDeadline(time.Now().Add(analyzeWriteWait))
	return connection.WriteJSON(msg)
}

func sendAnalyzeError(connection *gorilla.Conn, logger *logger.Logger, err error) {
	_, body := classifyError(err)
	logger.Error("Analysis failed: %v", err)

	text := body.Error
	if body.Remediation != "" {
		text += " " + body.Remediation
	}
	sendAnalyze(connection, dto.AnalyzeMessage{Type: dto.AnalyzeError, Error: text})
}

// decodeImage accepts plain base64 or a data URL; a mime type found in the
// data URL is used when none was given.
func decodeImage(encoded, mime string) ([]byte, string, error) {
	if strings.HasPrefix(encoded, "data:") {
		header, payload, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, "", fmt.Errorf("malformed data URL")
		}
		if mime == "" {
			mime = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		}
		encoded = payload
	}

	image, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, "", fmt.Errorf("image is not valid base64")
	}
	if len(image) == 0 {
		return nil, "", fmt.Errorf("image is empty")
	}
	return image, mime, nil
}
