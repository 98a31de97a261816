package mailer

import (
	clearchatcli "github.com/SundaeSwap-finance/clearchat/clearchat-cli"
	"github.com/urfave/cli/v2"
)

var MailOpts struct {
	Secret string
	From   string
}

var MailFlags = []cli.Flag{
	clearchatcli.StringFlag("mail-secret", "Secrets Manager secret holding the sender settings", &MailOpts.Secret),
	clearchatcli.StringFlag("mail-from", "sender address used when no secret is configured", &MailOpts.From, DefaultFrom),
}
