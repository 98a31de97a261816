package main

import (
	"fmt"
	"log"
	"os"

	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	clearchatws "github.com/SundaeSwap-finance/clearchat/clearchat-ws"
	"github.com/SundaeSwap-finance/clearchat/clearchat-ws/connectiondao"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/urfave/cli/v2"
)

var opts struct {
	Endpoint string
}

var service = clearchatcli.NewService("clearchat-auth")

func main() {
	app := clearchatcli.App(
		service,
		action,
		append(
			append(clearchatcli.CommonFlags, clearchatddb.DDBFlags...),
			clearchatcli.StringFlag("ws-endpoint", "API Gateway management endpoint of the websocket API", &opts.Endpoint),
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	if clearchatcli.CommonOpts.Console {
		return fmt.Errorf("in console mode authentication is served by clearchat-ws on /authenticate")
	}
	if opts.Endpoint == "" {
		return fmt.Errorf("ws-endpoint must be set")
	}

	s, err := session.NewSession()
	if err != nil {
		return fmt.Errorf("failed to create aws session: %w", err)
	}
	api, err := clearchatddb.DynamoDBAPI(s, clearchatcli.CommonOpts.Region)
	if err != nil {
		return err
	}

	var (
		logger   = clearchatcli.Logger(service)
		registry = connectiondao.Build(api, clearchatcli.CommonOpts.Env, clearchatddb.DDBOpts.BatchSize)
		handler  = &clearchatws.Handler{
			Registry: registry,
			Region:   clearchatcli.CommonOpts.Region,
			Logger:   logger,
			Dispatcher: &clearchatws.Dispatcher{
				Registry:  registry,
				Transport: clearchatws.NewAPIGatewayTransport(s, opts.Endpoint),
				Logger:    logger,
			},
		}
	)

	lambda.Start(handler.HandleAuthenticate)
	return nil
}
