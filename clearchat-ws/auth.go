package clearchatws

import (
	"context"

	"github.com/SundaeSwap-finance/clearchat/model"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambdacontext"
)

// AuthEvent is the payload of the authentication callback. The caller's
// identity comes from the Cognito identity attached to the invocation.
type AuthEvent struct {
	RoomID string `json:"roomId"`
}

// HandleAuthenticate is the Lambda entry point of the authentication side
// channel.
func (h *Handler) HandleAuthenticate(ctx context.Context, event AuthEvent) (events.APIGatewayProxyResponse, error) {
	lc, ok := lambdacontext.FromContext(ctx)
	if !ok || lc.Identity.CognitoIdentityID == "" {
		h.Logger.Warn().Str("room_id", event.RoomID).Msg("authentication without identity")
		return status(401, "no identity"), nil
	}
	return h.Authenticate(ctx, event.RoomID, lc.Identity.CognitoIdentityID), nil
}

// Authenticate marks every connection of userID in roomID as authenticated
// and tells those connections.
func (h *Handler) Authenticate(ctx context.Context, roomID, userID string) events.APIGatewayProxyResponse {
	logger := h.Logger.With().Str("room_id", roomID).Str("user_id", userID).Logger()
	ctx = logger.WithContext(ctx)

	if err := model.ValidateUserID(h.Region, userID); err != nil {
		logger.Warn().Err(err).Msg("authentication rejected")
		return status(400, "invalid user")
	}

	ids, err := h.Registry.ConnectionsForUser(ctx, roomID, userID)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list connections")
		return status(500, "error")
	}
	if err := h.Registry.MarkAuthenticated(ctx, ids); err != nil {
		logger.Error().Err(err).Strs("connections", ids).Msg("failed to mark connections authenticated")
		return status(500, "error")
	}
	if err := h.Dispatcher.SendToConnections(ctx, ConnectionAuthenticated(), ids...); err != nil {
		logger.Error().Err(err).Msg("failed to notify connections")
	}

	logger.Info().Int("connections", len(ids)).Msg("connections authenticated")
	return status(200, `{"ok":"ok"}`)
}
