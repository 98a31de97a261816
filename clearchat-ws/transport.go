package clearchatws

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
)

// APIGatewayTransport posts payloads to API Gateway websocket connections
// through the management API at Endpoint.
type APIGatewayTransport struct {
	Session  *session.Session
	Endpoint string

	// mgmtClients caches API Gateway Management API clients by endpoint
	mgmtMu      sync.RWMutex
	mgmtClients map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
}

func NewAPIGatewayTransport(s *session.Session, endpoint string) *APIGatewayTransport {
	return &APIGatewayTransport{Session: s, Endpoint: endpoint}
}

// Deliver returns ErrGone when API Gateway reports the connection as gone.
func (t *APIGatewayTransport) Deliver(ctx context.Context, connectionID string, payload []byte) error {
	client := t.client(t.Endpoint)
	_, err := client.PostToConnectionWithContext(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connectionID),
		Data:         payload,
	})
	if err != nil {
		if isGoneException(err) {
			return fmt.Errorf("%w: %v", ErrGone, connectionID)
		}
		return fmt.Errorf("posting to connection %v: %w", connectionID, err)
	}
	return nil
}

func (t *APIGatewayTransport) client(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
	t.mgmtMu.RLock()
	if client, ok := t.mgmtClients[endpoint]; ok {
		t.mgmtMu.RUnlock()
		return client
	}
	t.mgmtMu.RUnlock()

	t.mgmtMu.Lock()
	defer t.mgmtMu.Unlock()

	// Double-check after acquiring write lock
	if client, ok := t.mgmtClients[endpoint]; ok {
		return client
	}

	if t.mgmtClients == nil {
		t.mgmtClients = make(map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI)
	}

	client := apigatewaymanagementapi.New(t.Session, aws.NewConfig().WithEndpoint(endpoint))
	t.mgmtClients[endpoint] = client
	return client
}

// isGoneException checks if the error is a GoneException (HTTP 410),
// indicating the WebSocket connection no longer exists.
func isGoneException(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == apigatewaymanagementapi.ErrCodeGoneException {
		return true
	}
	var rerr awserr.RequestFailure
	return errors.As(err, &rerr) && rerr.StatusCode() == 410
}
