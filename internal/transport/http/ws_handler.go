package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
	"quizrush/internal/app"
	"quizrush/internal/domain"
)

// ConnTracker is notified when websocket connections open and close.
type ConnTracker interface {
	ConnOpened()
	ConnClosed()
}

type nopTracker struct{}

func (nopTracker) ConnOpened() {}
func (nopTracker) ConnClosed() {}

type WSHandler struct {
	service  *app.GameService
	log      *zap.Logger
	conns    ConnTracker
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.GameService, log *zap.Logger, conns ConnTracker) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	if conns == nil {
		conns = nopTracker{}
	}
	return &WSHandler{
		service: service,
		log:     log,
		conns:   conns,
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

type namePayload struct {
	Name string `json:"name"`
}

type difficultyPayload struct {
	Difficulty int `json:"difficulty"`
}

type subjectPayload struct {
	Subject string `json:"subject"`
}

type selectPayload struct {
	Index int `json:"index"`
}

type reviewPayload struct {
	Player string `json:"player"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// ServeWS upgrades the request and attaches the connection to the game in the path.
// Every change to the game is pushed to all of its connections as a "state" message.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.String("game", gameID), zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	h.service.Open(gameID)
	updates, cancel, err := h.service.Subscribe(ctx, gameID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: toErrorPayload(err)})
		return
	}
	h.conns.ConnOpened()
	defer h.conns.ConnClosed()
	defer h.service.Leave(context.WithoutCancel(ctx), gameID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.String("game", gameID), zap.Error(err))
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
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		reply, err := h.dispatch(ctx, gameID, inbound)
		switch {
		case errors.Is(err, domain.ErrInvalidSelection):
			// out-of-range clicks are dropped
		case err != nil:
			select {
			case send <- outboundMessage[any]{Type: "error", Payload: toErrorPayload(err)}:
			case <-writerDone:
			}
		case reply != nil:
			select {
			case send <- *reply:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

var errBadPayload = errors.New("invalid payload")

// dispatch applies one client intent. State changes reach the client through
// the subscription, so only queries produce a direct reply.
func (h *WSHandler) dispatch(ctx context.Context, gameID string, in inboundMessage) (*outboundMessage[any], error) {
	var err error
	switch in.Type {
	case "add_player":
		var p namePayload
		if err = decode(in.Payload, &p); err == nil {
			_, err = h.service.AddPlayer(ctx, gameID, p.Name)
		}
	case "set_difficulty":
		var p difficultyPayload
		if err = decode(in.Payload, &p); err == nil {
			_, err = h.service.SetDifficulty(ctx, gameID, p.Difficulty)
		}
	case "choose_subject":
		var p subjectPayload
		if err = decode(in.Payload, &p); err == nil {
			_, err = h.service.ChooseSubject(ctx, gameID, p.Subject)
		}
	case "select_option":
		var p selectPayload
		if err = decode(in.Payload, &p); err == nil {
			_, err = h.service.SelectOption(ctx, gameID, p.Index)
		}
	case "submit":
		_, err = h.service.Submit(ctx, gameID)
	case "new_game":
		_, err = h.service.NewGame(ctx, gameID)
	case "review":
		var p reviewPayload
		if err = decode(in.Payload, &p); err != nil {
			return nil, err
		}
		review, err := h.service.Review(ctx, gameID, p.Player)
		if err != nil {
			return nil, err
		}
		return &outboundMessage[any]{Type: "review", Payload: review}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported message type %q", errBadPayload, in.Type)
	}
	return nil, err
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

// toErrorPayload classifies err so the page can decide between an alert and a retry prompt.
func toErrorPayload(err error) errorPayload {
	kind := "internal"
	var le *domain.LoadError
	switch {
	case errors.As(err, &le):
		kind = "load"
	case errors.Is(err, domain.ErrRegistration):
		kind = "registration"
	case errors.Is(err, domain.ErrInvalidSubject):
		kind = "subject"
	case errors.Is(err, domain.ErrInvalidDifficulty):
		kind = "difficulty"
	case errors.Is(err, domain.ErrNotAwaitingAnswer), errors.Is(err, domain.ErrRoundInProgress):
		kind = "state"
	case errors.Is(err, domain.ErrUnknownPlayer), errors.Is(err, domain.ErrSessionNotFound):
		kind = "not_found"
	case errors.Is(err, errBadPayload):
		kind = "bad_request"
	}
	return errorPayload{Kind: kind, Message: err.Error()}
}
