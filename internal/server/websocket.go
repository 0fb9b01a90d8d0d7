package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"example/marketplace/internal/logger"
	"example/marketplace/internal/market"
	"example/marketplace/internal/models"

	"github.com/gorilla/websocket"
)

// Handler serves the marketplace over websocket connections
type Handler struct {
	svc        *market.Service
	sinkBuffer int
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	sessions map[*session]struct{}
	closing  bool
	wg       sync.WaitGroup
}

func NewHandler(svc *market.Service, sinkBuffer int) *Handler {
	return &Handler{
		svc:        svc,
		sinkBuffer: sinkBuffer,
		sessions:   make(map[*session]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// HandleWebSocket handles incoming WebSocket connections
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Errorw("WebSocket upgrade error", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	defer conn.Close()

	sess := newSession(conn, h.sinkBuffer)
	if !h.track(sess) {
		logger.Log.Infow("Connection refused, server shutting down", "remote_addr", r.RemoteAddr)
		return
	}
	defer h.untrack(sess)
	go sess.writeLoop()
	logger.Log.Infow("Client connected", "session", sess.id, "remote_addr", conn.RemoteAddr().String())

	defer func() {
		if sess.name != "" {
			h.svc.Disconnect(sess.name, sess)
		}
		sess.close()
		logger.Log.Infow("Client disconnected", "session", sess.id, "name", sess.name)
	}()

	ctx := r.Context()
	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warnw("WebSocket error", "error", err, "session", sess.id)
			}
			return
		}

		// Try to unmarshal as an array (batch) of messages first
		var batch []models.WSMessage
		if err := json.Unmarshal(p, &batch); err == nil && len(batch) > 0 {
			responses := make([]models.WSResponse, 0, len(batch))
			for _, m := range batch {
				responses = append(responses, h.handleMessage(ctx, sess, m))
			}
			if !sess.reply(responses) {
				return
			}
			continue
		}

		var msg models.WSMessage
		if err := json.Unmarshal(p, &msg); err != nil {
			logger.Log.Warnw("Invalid message format", "session", sess.id, "error", err)
			if !sess.reply(models.WSResponse{Success: false, Error: "invalid message format", Code: "invalid_request"}) {
				return
			}
			continue
		}

		if !sess.reply(h.handleMessage(ctx, sess, msg)) {
			return
		}
	}
}

func (h *Handler) track(sess *session) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closing {
		return false
	}
	h.sessions[sess] = struct{}{}
	h.wg.Add(1)
	return true
}

func (h *Handler) untrack(sess *session) {
	h.mu.Lock()
	delete(h.sessions, sess)
	h.mu.Unlock()
	h.wg.Done()
}

// Shutdown closes every live connection and waits until their handlers have
// logged the customers out. New connections are refused from then on.
func (h *Handler) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	h.closing = true
	for sess := range h.sessions {
		sess.close()
		_ = sess.conn.Close()
	}
	logger.Log.Infow("Closing websocket sessions", "count", len(h.sessions))
	h.mu.Unlock()

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handleMessage processes a single WSMessage and returns a WSResponse
func (h *Handler) handleMessage(ctx context.Context, sess *session, msg models.WSMessage) models.WSResponse {
	logger.Log.Debugw("Processing action", "action", msg.Action, "session", sess.id, "name", sess.name)

	data, err := h.dispatch(ctx, sess, msg)
	if err != nil {
		return models.WSResponse{ID: msg.ID, Action: msg.Action, Success: false, Error: err.Error(), Code: errorCode(err)}
	}
	return models.WSResponse{ID: msg.ID, Action: msg.Action, Success: true, Data: data}
}

var errBadPayload = errors.New("invalid payload")

func (h *Handler) dispatch(ctx context.Context, sess *session, msg models.WSMessage) (interface{}, error) {
	switch msg.Action {
	case "register", "login":
		var c models.Credentials
		if err := decode(msg.Data, &c); err != nil {
			return nil, err
		}
		var acct models.Account
		var err error
		if msg.Action == "register" {
			acct, err = h.svc.Register(ctx, c.Name, c.Password, c.LedgerAccount, sess)
		} else {
			acct, err = h.svc.Login(ctx, c.Name, c.Password, sess)
		}
		if err != nil {
			return nil, err
		}
		if sess.name != "" && sess.name != c.Name {
			h.svc.Disconnect(sess.name, sess)
		}
		sess.name = c.Name
		return acct, nil

	case "list":
		return h.svc.ListItems(), nil
	}

	// everything below acts for the customer bound to this session
	if sess.name == "" {
		return nil, market.ErrNotLoggedIn
	}
	if !h.svc.Bound(sess.name, sess) {
		// another session logged in as this customer, or our sink was dropped
		sess.name = ""
		return nil, market.ErrNotLoggedIn
	}

	switch msg.Action {
	case "logout":
		h.svc.Logout(sess.name)
		sess.name = ""
		return nil, nil

	case "unregister":
		removed, err := h.svc.Unregister(ctx, sess.name)
		if err != nil {
			return nil, err
		}
		sess.name = ""
		return map[string]bool{"removed": removed}, nil

	case "whoami":
		acct, ok := h.svc.Account(sess.name)
		if !ok {
			return nil, market.ErrNotLoggedIn
		}
		return acct, nil

	case "offer", "buy", "wish":
		var req models.ItemRequest
		if err := decode(msg.Data, &req); err != nil {
			return nil, err
		}
		switch msg.Action {
		case "offer":
			return nil, h.svc.Offer(ctx, sess.name, req.Item, req.Price)
		case "wish":
			return nil, h.svc.Wish(ctx, sess.name, req.Item, req.Price)
		}
		ok, err := h.svc.Purchase(ctx, req.Item, req.Price, sess.name)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"purchased": ok}, nil
	}

	logger.Log.Infow("unknown action", "action", msg.Action, "session", sess.id)
	return nil, errors.New("unknown action")
}

func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errBadPayload
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errBadPayload
	}
	return nil
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, market.ErrDuplicateAccount):
		return "duplicate_account"
	case errors.Is(err, market.ErrDuplicateItem):
		return "duplicate_item"
	case errors.Is(err, market.ErrBadCredentials):
		return "bad_credentials"
	case errors.Is(err, market.ErrNotLoggedIn):
		return "not_logged_in"
	case errors.Is(err, market.ErrLedgerRejected):
		return "ledger_rejected"
	case errors.Is(err, market.ErrTransportFailure):
		return "transport_failure"
	case errors.Is(err, market.ErrStore):
		return "store_failure"
	case errors.Is(err, market.ErrInvalidArgument), errors.Is(err, errBadPayload):
		return "invalid_request"
	}
	return "unknown"
}
