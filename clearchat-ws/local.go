package clearchatws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// LocalServer runs the websocket API without API Gateway. Each socket is given
// a connection id and its lifecycle is replayed to the Handler as $connect,
// $default or HEARTBEAT, and $disconnect events. It is also the Transport
// for the connections it holds.
type LocalServer struct {
	Handler *Handler

	upgrader websocket.Upgrader
	mu       sync.RWMutex
	conns    map[string]*localConn
}

type localConn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func NewLocalServer() *LocalServer {
	return &LocalServer{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: map[string]*localConn{},
	}
}

// Routes serves the websocket on /ws and the authentication callback on
// /authenticate. Without Cognito the caller names the user id directly.
func (s *LocalServer) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWebsocket)
	mux.HandleFunc("/authenticate", s.serveAuthenticate)
	return mux
}

func (s *LocalServer) Deliver(_ context.Context, connectionID string, payload []byte) error {
	s.mu.RLock()
	conn, ok := s.conns[connectionID]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %v", ErrGone, connectionID)
	}

	conn.mu.Lock()
	defer conn.mu.Unlock()
	if err := conn.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("writing to %v: %w", connectionID, err)
	}
	return nil
}

func event(connID, route, body string, query map[string]string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		Body:                  body,
		QueryStringParameters: query,
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			ConnectionID: connID,
			RouteKey:     route,
		},
	}
}

// selectRoute mirrors the API's route selection expression,
// $request.body.request.
func selectRoute(body []byte) string {
	var req struct {
		Request RequestType `json:"request"`
	}
	if json.Unmarshal(body, &req) == nil && req.Request == HeartbeatRequest {
		return HeartbeatRoute
	}
	return DefaultRoute
}

func (s *LocalServer) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	var (
		ctx    = r.Context()
		connID = uuid.NewString()
		query  = map[string]string{}
	)
	for key := range r.URL.Query() {
		query[key] = r.URL.Query().Get(key)
	}

	resp, _ := s.Handler.HandleEvent(ctx, event(connID, ConnectRoute, "", query))
	if resp.StatusCode != http.StatusOK {
		http.Error(w, resp.Body, resp.StatusCode)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Handler.Logger.Warn().Err(err).Str("connection_id", connID).Msg("websocket upgrade failed")
		s.Handler.HandleEvent(context.Background(), event(connID, DisconnectRoute, "", nil))
		return
	}

	s.mu.Lock()
	s.conns[connID] = &localConn{ws: ws}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.conns, connID)
		s.mu.Unlock()
		ws.Close()
		s.Handler.HandleEvent(context.Background(), event(connID, DisconnectRoute, "", nil))
	}()

	for {
		kind, body, err := ws.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.TextMessage {
			continue
		}
		s.Handler.HandleEvent(ctx, event(connID, selectRoute(body), string(body), nil))
	}
}

type authenticateRequest struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

func (s *LocalServer) serveAuthenticate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST requests only", http.StatusMethodNotAllowed)
		return
	}
	var req authenticateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	resp := s.Handler.Authenticate(r.Context(), req.RoomID, req.UserID)
	w.WriteHeader(resp.StatusCode)
	fmt.Fprint(w, resp.Body)
}
