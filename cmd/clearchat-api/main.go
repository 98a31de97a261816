package main

import (
	"fmt"
	"log"
	"os"

	"github.com/SundaeSwap-finance/clearchat/chat"
	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	clearchatddb "github.com/SundaeSwap-finance/clearchat/clearchat-ddb"
	clearchatrest "github.com/SundaeSwap-finance/clearchat/clearchat-rest"
	"github.com/SundaeSwap-finance/clearchat/mailer"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/urfave/cli/v2"
)

var service = clearchatcli.NewService("clearchat-api")

func main() {
	app := clearchatcli.App(
		service,
		action,
		append(
			append(
				append(clearchatcli.CommonFlags, clearchatddb.DDBFlags...),
				mailer.MailFlags...,
			),
			clearchatcli.PortFlag(5001),
		)...,
	)
	err := app.Run(os.Args)
	if err != nil {
		log.Fatalln(err)
	}
}

func action(_ *cli.Context) error {
	var (
		logger = clearchatcli.Logger(service)
		config = chat.Config{Zone: clearchatcli.CommonOpts.Zone}
		rooms  *chat.Service
	)

	if clearchatcli.CommonOpts.Console {
		rooms = chat.New(chat.NewMemoryStore(), mailer.Log{Logger: logger, Zone: config.Zone}, config)
	} else {
		s, err := session.NewSession()
		if err != nil {
			return fmt.Errorf("failed to create aws session: %w", err)
		}
		api, err := clearchatddb.DynamoDBAPI(s, clearchatcli.CommonOpts.Region)
		if err != nil {
			return err
		}

		settings := mailer.Settings{From: mailer.MailOpts.From}
		if mailer.MailOpts.Secret != "" {
			if err := mailer.LoadSettings(s, mailer.MailOpts.Secret, &settings); err != nil {
				return err
			}
		}
		store := chat.NewDynamoStore(api, clearchatcli.CommonOpts.Env, clearchatddb.DDBOpts.BatchSize)
		rooms = chat.New(store, mailer.NewSES(ses.New(s), settings, config.Zone), config)
	}

	api := &clearchatrest.API{Rooms: rooms}
	return clearchatrest.Webserver(logger, api.Routes(logger))
}
