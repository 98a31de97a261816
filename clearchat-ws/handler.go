// Package clearchatws serves the clearchat websocket API: the session
// handshake on $connect, $disconnect and HEARTBEAT, the application requests
// arriving on $default, the out-of-band authentication callback and the
// fan-out of responses to every connection of a user.
package clearchatws

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/SundaeSwap-finance/clearchat/chat"
	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/connectiondao"
	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

const (
	ConnectRoute    = "$connect"
	DisconnectRoute = "$disconnect"
	DefaultRoute    = "$default"
	HeartbeatRoute  = string(HeartbeatRequest)
)

// Registry is the connection registry used by the handler.
type Registry interface {
	Resolver
	Register(ctx context.Context, conn connectiondao.Connection) error
	Unregister(ctx context.Context, connectionID string) error
	Get(ctx context.Context, connectionID string) (*connectiondao.Connection, error)
	MarkAuthenticated(ctx context.Context, connectionIDs []string) error
}

// Handler handles API Gateway websocket events for clearchat rooms.
type Handler struct {
	Registry   Registry
	Chat       *chat.Service
	Dispatcher *Dispatcher
	Region     string
	Logger     zerolog.Logger
	ConnTTL    time.Duration // TTL for connection records (default 2 hours)
	Metrics    *clearchatcli.Metrics
	Now        func() time.Time
}

func status(code int, body string) events.APIGatewayProxyResponse {
	return events.APIGatewayProxyResponse{StatusCode: code, Body: body}
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// HandleEvent routes an API Gateway websocket event to the appropriate
// handler. Faults are reported through the status code; a panic fails only
// the event that caused it.
func (h *Handler) HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (resp events.APIGatewayProxyResponse, err error) {
	var (
		route  = req.RequestContext.RouteKey
		start  = time.Now()
		logger = h.Logger.With().
			Str("connection_id", req.RequestContext.ConnectionID).
			Str("route", route).
			Logger()
	)
	ctx = logger.WithContext(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic handling event")
			resp, err = status(500, "internal error"), nil
		}
		if h.Metrics != nil {
			h.Metrics.Timing(ctx, clearchatcli.ResponseTimeMetric, start, map[clearchatcli.DimensionName]string{
				clearchatcli.OperationNameDimension: route,
			})
		}
	}()

	switch route {
	case ConnectRoute:
		return h.handleConnect(ctx, logger, req), nil
	case DisconnectRoute:
		return h.handleDisconnect(ctx, logger, req), nil
	case HeartbeatRoute:
		return h.handleHeartbeat(ctx, logger, req.RequestContext.ConnectionID), nil
	case DefaultRoute:
		return h.handleMessage(ctx, logger, req), nil
	default:
		logger.Warn().Msg("unknown route")
		return status(400, "unknown route"), nil
	}
}

func (h *Handler) handleConnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) events.APIGatewayProxyResponse {
	var (
		connID     = req.RequestContext.ConnectionID
		roomID     = req.QueryStringParameters["roomId"]
		userID     = req.QueryStringParameters["userId"]
		adminToken = req.QueryStringParameters["adminToken"]
	)
	logger = logger.With().Str("room_id", roomID).Str("user_id", userID).Logger()

	if err := model.ValidateRoomID(roomID); err != nil {
		logger.Warn().Err(err).Msg("refusing connection")
		return status(400, "invalid room")
	}
	if err := model.ValidateUserID(h.Region, userID); err != nil {
		logger.Warn().Err(err).Msg("refusing connection")
		return status(400, "invalid user")
	}

	room, err := h.Chat.GetRoom(ctx, roomID)
	if errors.Is(err, chat.ErrRoomNotFound) {
		logger.Warn().Msg("room does not exist, refusing connection")
		return status(404, "room does not exist")
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to get room")
		return status(500, "failed to connect")
	}

	ttl := h.ConnTTL
	if ttl == 0 {
		ttl = 2 * time.Hour
	}

	now := h.now()
	conn := connectiondao.Connection{
		ConnectionID: connID,
		RoomID:       roomID,
		UserID:       userID,
		IsAdmin:      adminToken != "" && subtle.ConstantTimeCompare([]byte(adminToken), []byte(room.AdminToken)) == 1,
		CreatedTime:  model.Millis(now),
		TTL:          now.Add(ttl).Unix(),
	}

	if err := h.Registry.Register(ctx, conn); err != nil {
		if errors.Is(err, connectiondao.ErrRegistrationFailed) {
			logger.Warn().Err(err).Msg("refusing connection")
			return status(404, "room does not exist")
		}
		logger.Error().Err(err).Msg("failed to register connection")
		return status(500, "failed to connect")
	}

	logger.Info().Bool("admin", conn.IsAdmin).Msg("connection established")
	return status(200, "connected")
}

func (h *Handler) handleDisconnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) events.APIGatewayProxyResponse {
	if err := h.Registry.Unregister(ctx, req.RequestContext.ConnectionID); err != nil {
		logger.Error().Err(err).Msg("failed to unregister connection")
		return status(500, "failed to disconnect")
	}
	logger.Info().Msg("connection closed")
	return status(200, "disconnected")
}

func (h *Handler) handleHeartbeat(ctx context.Context, logger zerolog.Logger, connID string) events.APIGatewayProxyResponse {
	if err := h.reply(ctx, connID, Heartbeat(connID)); err != nil {
		logger.Error().Err(err).Msg("failed to send heartbeat")
		return status(500, "failed to handle heartbeat")
	}
	return status(200, "ok")
}

func (h *Handler) reply(ctx context.Context, connID string, resp Response) error {
	return h.Dispatcher.SendToConnections(ctx, resp, connID)
}

func (h *Handler) handleMessage(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) events.APIGatewayProxyResponse {
	connID := req.RequestContext.ConnectionID

	request, err := ParseRequest(req.Body)
	if err != nil {
		logger.Warn().Err(err).Msg("invalid request")
		return status(400, "invalid request")
	}
	if request.Request == HeartbeatRequest {
		return h.handleHeartbeat(ctx, logger, connID)
	}

	conn, err := h.Registry.Get(ctx, connID)
	if errors.Is(err, connectiondao.ErrConnectionNotFound) {
		logger.Warn().Msg("request from unknown connection")
		return status(401, "not connected")
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to look up connection")
		return status(500, "internal error")
	}

	logger = logger.With().
		Str("request", string(request.Request)).
		Str("room_id", conn.RoomID).
		Str("user_id", conn.UserID).
		Logger()
	ctx = logger.WithContext(ctx)

	if !conn.Authenticated {
		logger.Warn().Msg("request before authentication")
		return status(401, "not authenticated")
	}

	id := chat.Identity{RoomID: conn.RoomID, UserID: conn.UserID, IsAdmin: conn.IsAdmin}
	if request.Request.AdminOnly() && !id.IsAdmin {
		logger.Warn().Msg("admin request from non admin user")
		return h.replyStatus(ctx, logger, connID, Error(UserNotAdmin))
	}

	if err := h.dispatch(ctx, logger, connID, id, request); err != nil {
		return h.fail(ctx, logger, connID, err)
	}
	return status(200, "ok")
}

func (h *Handler) replyStatus(ctx context.Context, logger zerolog.Logger, connID string, resp Response) events.APIGatewayProxyResponse {
	if err := h.reply(ctx, connID, resp); err != nil {
		logger.Error().Err(err).Msg("failed to reply")
		return status(500, "internal error")
	}
	return status(200, "ok")
}

// fail maps an operation error to a wire error where the protocol has one,
// and to a status code otherwise.
func (h *Handler) fail(ctx context.Context, logger zerolog.Logger, connID string, err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, chat.ErrNotAdmin):
		logger.Warn().Err(err).Msg("request rejected")
		return h.replyStatus(ctx, logger, connID, Error(UserNotAdmin))
	case errors.Is(err, chat.ErrRoomNotFound):
		logger.Warn().Err(err).Msg("room not found")
		return h.replyStatus(ctx, logger, connID, Error(RoomNotFound))
	case errors.Is(err, chat.ErrGuestNotFound),
		errors.Is(err, chat.ErrMessageInvalid),
		errors.Is(err, chat.ErrAdminGuest),
		errors.Is(err, model.ErrInvalidTransition):
		logger.Warn().Err(err).Msg("request rejected")
		return status(400, "request rejected")
	default:
		logger.Error().Err(err).Msg("failed to handle request")
		return status(500, "internal error")
	}
}

func (h *Handler) dispatch(ctx context.Context, logger zerolog.Logger, connID string, id chat.Identity, req *Request) error {
	switch req.Request {
	case GetMessagesRequest:
		messages, err := h.Chat.GetMessages(ctx, id)
		if err != nil {
			return err
		}
		return h.reply(ctx, connID, Messages(messages))

	case SendMessageRequest:
		message, guest, err := h.Chat.StoreMessage(ctx, id, *req.Message)
		if err != nil {
			return err
		}
		// the guest the message belongs to may not be the sender
		h.sendToUser(ctx, logger, id.RoomID, message.UserID, Messages([]model.Message{message}), true)
		h.sendToUser(ctx, logger, id.RoomID, message.UserID, GuestDetails(guest), true)
		return nil

	case GetGuestRequest:
		if id.IsAdmin {
			logger.Warn().Msg("ignoring GET_GUEST from admin")
			return nil
		}
		guest, err := h.Chat.GetGuest(ctx, id)
		if err != nil {
			return err
		}
		return h.reply(ctx, connID, GuestDetails(guest))

	case GetRoomDetailsRequest:
		room, err := h.Chat.GetRoomDetails(ctx, id)
		if err != nil {
			return err
		}
		return h.reply(ctx, connID, RoomDetails(*room))

	case GetRoomGuestsRequest:
		guests, err := h.Chat.ListGuests(ctx, id)
		if err != nil {
			return err
		}
		return h.reply(ctx, connID, RoomGuests(guests))

	case GetRoomMessagesRequest:
		messages, err := h.Chat.GetRoomMessages(ctx, id)
		if err != nil {
			return err
		}
		return h.reply(ctx, connID, Messages(messages))

	case SetRoomGrantRequest:
		guests, err := h.Chat.UpdateRoomGrant(ctx, id, *req.Grant)
		if errors.Is(err, model.ErrGrantInvalid) {
			logger.Warn().Err(err).Msg("grant not updated")
			return nil
		}
		if err != nil {
			return err
		}
		for i := range guests {
			h.sendToUser(ctx, logger, id.RoomID, guests[i].UserID, GuestDetails(&guests[i]), false)
		}
		return nil

	case CreateGuestRequest:
		guest, err := h.Chat.CreateGuest(ctx, id, req.Name)
		if err != nil {
			return err
		}
		h.sendToUser(ctx, logger, id.RoomID, id.UserID, GuestDetails(guest), true)
		return nil

	case SetGuestStateRequest:
		guest, err := h.Chat.SetGuestState(ctx, id, req.UserID, req.State)
		if err != nil {
			return err
		}
		h.sendToUser(ctx, logger, id.RoomID, req.UserID, GuestDetails(guest), true)
		return nil

	case SetGuestReadRequest:
		guest, err := h.Chat.MarkGuestRead(ctx, id, req.UserID)
		if err != nil {
			return err
		}
		if err := h.Dispatcher.SendToAdmins(ctx, id.RoomID, GuestDetails(guest)); err != nil {
			logger.Error().Err(err).Msg("failed to notify admins")
		}
		return nil

	case DeleteRoomRequest:
		guests, err := h.Chat.DeleteRoom(ctx, id)
		if err != nil {
			return err
		}
		h.notifyRoom(ctx, logger, id.RoomID, guests, RedirectToBrochure())
		return nil

	case ResetRoomRequest:
		guests, err := h.Chat.ResetRoom(ctx, id)
		if err != nil {
			return err
		}
		h.notifyRoom(ctx, logger, id.RoomID, guests, ReloadPage())
		return nil
	}
	return fmt.Errorf("%w: %v", ErrUnknownRequest, req.Request)
}

func (h *Handler) sendToUser(ctx context.Context, logger zerolog.Logger, roomID, userID string, resp Response, alsoToAdmins bool) {
	if err := h.Dispatcher.SendToUser(ctx, roomID, userID, resp, alsoToAdmins); err != nil {
		logger.Error().Err(err).Str("to", userID).Str("response", string(resp.Type())).Msg("failed to resolve recipients")
	}
}

// notifyRoom sends resp to the room admins and to each of the guests.
func (h *Handler) notifyRoom(ctx context.Context, logger zerolog.Logger, roomID string, guests []model.Guest, resp Response) {
	if err := h.Dispatcher.SendToAdmins(ctx, roomID, resp); err != nil {
		logger.Error().Err(err).Msg("failed to notify admins")
	}
	for _, guest := range guests {
		h.sendToUser(ctx, logger, roomID, guest.UserID, resp, false)
	}
}
