package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/SundaeSwap-finance/clearchat/chat"
	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	clearchatrest "github.com/SundaeSwap-finance/clearchat/clearchat-rest"
	clearchatws "github.com/SundaeSwap-finance/clearchat/clearchat-ws"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/connectiondao"
	"github.com/SundaeSwap-finance/clearchat/mailer"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/cloudwatch"
	"github.com/urfave/cli/v2"
)

var opts struct {
	Endpoint string
	ConnTTL  time.Duration
}

var service = clearchatcli.NewService("clearchat-ws")

func main() {
	app := clearchatcli.App(
		service,
		action,
		append(
			append(clearchatcli.CommonFlags, clearchatddb.DDBFlags...),
			clearchatcli.PortFlag(5002),
			clearchatcli.StringFlag("ws-endpoint", "API Gateway management endpoint, https://{api-id}.execute-api.{region}.amazonaws.com/{stage}", &opts.Endpoint),
			clearchatcli.DurationFlag("conn-ttl", "lifetime of connection records", &opts.ConnTTL, 2*time.Hour),
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	logger := clearchatcli.Logger(service)

	handler := &clearchatws.Handler{
		Region:  clearchatcli.CommonOpts.Region,
		Logger:  logger,
		ConnTTL: opts.ConnTTL,
	}
	config := chat.Config{Zone: clearchatcli.CommonOpts.Zone}

	if clearchatcli.CommonOpts.Console {
		store := chat.NewMemoryStore()
		server := clearchatws.NewLocalServer()
		server.Handler = handler
		handler.Registry = clearchatws.NewMemoryRegistry(roomExists(store))
		handler.Chat = chat.New(store, mailer.Log{Logger: logger, Zone: config.Zone}, config)
		handler.Dispatcher = &clearchatws.Dispatcher{Registry: handler.Registry, Transport: server, Logger: logger}

		// the claim endpoints share the in-memory store so local rooms can be claimed
		routes := (&clearchatrest.API{Rooms: handler.Chat}).Routes(logger)
		routes.Handle("/ws", server.Routes())
		routes.Handle("/authenticate", server.Routes())

		logger.Info().Int("port", clearchatcli.CommonOpts.Port).Msg("starting websocket server")
		return http.ListenAndServe(fmt.Sprintf(":%v", clearchatcli.CommonOpts.Port), routes)
	}

	if opts.Endpoint == "" {
		return fmt.Errorf("ws-endpoint must be set outside console mode")
	}
	s, err := session.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create aws session: %w", err)
	}
	api, err := clearchatddb.DynamoDBAPI(s, clearchatcli.CommonOpts.Region)
	if err != nil {
		return err
	}

	handler.Registry = connectiondao.Build(api, clearchatcli.CommonOpts.Env, clearchatddb.DDBOpts.BatchSize)
	handler.Chat = chat.New(chat.NewDynamoStore(api, clearchatcli.CommonOpts.Env, clearchatddb.DDBOpts.BatchSize), mailer.Log{Logger: logger, Zone: config.Zone}, config)
	handler.Dispatcher = &clearchatws.Dispatcher{
		Registry:  handler.Registry,
		Transport: clearchatws.NewAPIGatewayTransport(s, opts.Endpoint),
		Logger:    logger,
	}
	if clearchatcli.CommonOpts.Metrics {
		metrics := clearchatcli.NewMetrics(service, cloudwatch.New(s))
		handler.Metrics = &metrics
		handler.Dispatcher.Metrics = &metrics
	}

	lambda.Start(handler.HandleEvent)
	return nil
}

func roomExists(store *chat.MemoryStore) func(ctx context.Context, roomID string) (bool, error) {
	return func(ctx context.Context, roomID string) (bool, error) {
		_, err := store.GetRoom(ctx, roomID)
		if errors.Is(err, chat.ErrRoomNotFound) {
			return false, nil
		}
		return err == nil, err
	}
}
