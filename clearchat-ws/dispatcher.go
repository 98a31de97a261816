package clearchatws

import (
	"context"
	"errors"

	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// ErrGone is returned by a Transport when the target connection no longer
// exists.
var ErrGone = errors.New("connection gone")

// Transport delivers a payload to one physical connection.
type Transport interface {
	Deliver(ctx context.Context, connectionID string, payload []byte) error
}

// Resolver maps logical recipients to physical connection ids.
type Resolver interface {
	ConnectionsForUser(ctx context.Context, roomID, userID string) ([]string, error)
	ConnectionsForRoomAdmins(ctx context.Context, roomID string) ([]string, error)
}

// Dispatcher fans responses out to every live connection of a user and,
// optionally, of the room's admins. Delivery is best effort: failures are
// logged and counted, never returned.
type Dispatcher struct {
	Registry    Resolver
	Transport   Transport
	Logger      zerolog.Logger
	Concurrency int // max concurrent deliveries (default 50)
	Metrics     *clearchatcli.Metrics
}

// SendToUser delivers resp to every connection of userID in roomID, and to
// the room admins when alsoToAdmins is set. Only a failure to resolve the
// recipients is returned.
func (d *Dispatcher) SendToUser(ctx context.Context, roomID, userID string, resp Response, alsoToAdmins bool) error {
	ids, err := d.Registry.ConnectionsForUser(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if alsoToAdmins {
		admins, err := d.Registry.ConnectionsForRoomAdmins(ctx, roomID)
		if err != nil {
			return err
		}
		ids = append(ids, admins...)
	}
	return d.SendToConnections(ctx, resp, ids...)
}

// SendToAdmins delivers resp to every admin connection of roomID.
func (d *Dispatcher) SendToAdmins(ctx context.Context, roomID string, resp Response) error {
	ids, err := d.Registry.ConnectionsForRoomAdmins(ctx, roomID)
	if err != nil {
		return err
	}
	return d.SendToConnections(ctx, resp, ids...)
}

// SendToConnections delivers resp to each of the connection ids. Every id is
// attempted regardless of the others; an error is only returned when resp
// cannot be encoded.
func (d *Dispatcher) SendToConnections(ctx context.Context, resp Response, connectionIDs ...string) error {
	payload, err := Encode(resp)
	if err != nil {
		return err
	}
	connectionIDs = lo.Uniq(connectionIDs)
	if len(connectionIDs) == 0 {
		return nil
	}

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	d.Logger.Debug().
		Str("response", string(resp.Type())).
		Int("connections", len(connectionIDs)).
		Msg("dispatching response")

	// The group context is not used for deliveries: one failure must not
	// cancel the rest.
	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, id := range connectionIDs {
		id := id
		g.Go(func() error {
			d.deliver(ctx, id, resp.Type(), payload)
			return nil
		})
	}
	return g.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, connectionID string, kind ResponseType, payload []byte) {
	err := d.Transport.Deliver(ctx, connectionID, payload)
	switch {
	case err == nil:
	case errors.Is(err, ErrGone):
		d.Logger.Info().
			Str("connection_id", connectionID).
			Str("response", string(kind)).
			Msg("connection gone, skipping")
		d.event(ctx, clearchatcli.DeliveryGoneMetric, kind)
	default:
		d.Logger.Error().Err(err).
			Str("connection_id", connectionID).
			Str("response", string(kind)).
			Msg("failed to deliver response")
		d.event(ctx, clearchatcli.DeliveryFailedMetric, kind)
	}
}

func (d *Dispatcher) event(ctx context.Context, name clearchatcli.MetricName, kind ResponseType) {
	if d.Metrics == nil {
		return
	}
	d.Metrics.Event(ctx, name, map[clearchatcli.DimensionName]string{
		clearchatcli.OperationNameDimension: string(kind),
	})
}
