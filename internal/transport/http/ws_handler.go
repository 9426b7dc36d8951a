package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"formflow-service/internal/app"
	"formflow-service/internal/domain"
)

type WSHandler struct {
	service  *app.FormService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.FormService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Value      any    `json:"value"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type validationPayload struct {
	Missing []string `json:"missing"`
}

type completedPayload struct {
	ResponseID string `json:"responseId"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// form rendering use cases. The widget submits answers as the user
// types; every change comes back as a freshly computed page.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	formID := r.URL.Query().Get("formId")
	sessionID := r.URL.Query().Get("sessionId")
	if formID == "" || sessionID == "" {
		http.Error(w, "missing formId or sessionId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	page, err := h.service.StartSession(r.Context(), formID, sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// One writer goroutine owns the connection; everything else goes
	// through the send channel to avoid concurrent writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "page", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "page", Payload: page}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.QuestionID == "" {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			if _, err := h.service.SubmitAnswer(r.Context(), sessionID, payload.QuestionID, payload.Value); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}
			// the subscription delivers the recomputed page

		case "next":
			view, done, err := h.service.Next(r.Context(), sessionID)
			h.sendNavResult(send, view, done, err)

		case "back":
			if _, err := h.service.Back(r.Context(), sessionID); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
			}

		case "complete":
			view, err := h.service.Complete(r.Context(), sessionID)
			h.sendNavResult(send, view, err == nil, err)

		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// sendNavResult translates a navigation outcome into the protocol:
// validation failures list the unanswered ids, completion carries the
// response id, page moves arrive via the subscription.
func (h *WSHandler) sendNavResult(send chan outboundMessage[any], view app.PageView, done bool, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		send <- outboundMessage[any]{Type: "validation", Payload: validationPayload{Missing: verr.Missing}}
	case err != nil:
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
	case done:
		send <- outboundMessage[any]{Type: "completed", Payload: completedPayload{ResponseID: view.ResponseID}}
	}
}
