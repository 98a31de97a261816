// Package mailer delivers the admin link of a freshly claimed room by email.
package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/rs/zerolog"
	"github.com/savaki/secrets"
)

const DefaultFrom = "ClearChat Admin Link <admin-link@clearchat.cc>"

// Settings configure the sender. They are read from Secrets Manager when a
// secret name is configured.
type Settings struct {
	From             string `json:"from"`
	ReplyTo          string `json:"replyTo,omitempty"`
	ConfigurationSet string `json:"configurationSet,omitempty"`
}

func LoadSettings(s *session.Session, secretName string, settings *Settings) error {
	api := secrets.WithSecretsManager(secretsmanager.New(s))
	manager, err := secrets.NewManager(api)
	if err != nil {
		return fmt.Errorf("failed to initialize secrets: %w", err)
	}

	if err := manager.Decode(secretName, settings); err != nil {
		return fmt.Errorf("failed to load mail settings %v: %w", secretName, err)
	}
	if settings.From == "" {
		settings.From = DefaultFrom
	}
	return nil
}

func Subject(roomID, zone string) string {
	return fmt.Sprintf("Your admin link for %v.%v", roomID, zone)
}

func Body(roomID, zone, adminLink, guestLink string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi,\n\n")
	fmt.Fprintf(&b, "To administer %v.%v use this address:\n\n%v\n\n", roomID, zone, adminLink)
	fmt.Fprintf(&b, "The admin link can be shared with other members of your team if you would like to collaborate on approvals.\n\n")
	fmt.Fprintf(&b, "To invite guests use this address:\n\n%v\n\n", guestLink)
	fmt.Fprintf(&b, "Thanks,\n\n%v\n", zone)
	return b.String()
}

// SES sends admin links through Amazon SES.
type SES struct {
	api      sesiface.SESAPI
	settings Settings
	zone     string
}

func NewSES(api sesiface.SESAPI, settings Settings, zone string) *SES {
	if settings.From == "" {
		settings.From = DefaultFrom
	}
	return &SES{api: api, settings: settings, zone: zone}
}

func (m *SES) SendAdminLink(ctx context.Context, to, roomID, adminLink, guestLink string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(m.settings.From),
		Destination: &ses.Destination{
			ToAddresses: []*string{aws.String(to)},
		},
		Message: &ses.Message{
			Subject: &ses.Content{
				Charset: aws.String("UTF-8"),
				Data:    aws.String(Subject(roomID, m.zone)),
			},
			Body: &ses.Body{
				Text: &ses.Content{
					Charset: aws.String("UTF-8"),
					Data:    aws.String(Body(roomID, m.zone, adminLink, guestLink)),
				},
			},
		},
	}
	if m.settings.ReplyTo != "" {
		input.ReplyToAddresses = []*string{aws.String(m.settings.ReplyTo)}
	}
	if m.settings.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(m.settings.ConfigurationSet)
	}

	output, err := m.api.SendEmailWithContext(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send admin link for room %v: %w", roomID, err)
	}
	zerolog.Ctx(ctx).Info().
		Str("room_id", roomID).
		Str("message_id", aws.StringValue(output.MessageId)).
		Msg("sent admin link")
	return nil
}

// Log writes admin links to the log instead of sending them. Used in console
// mode.
type Log struct {
	Logger zerolog.Logger
	Zone   string
}

func (m Log) SendAdminLink(_ context.Context, to, roomID, adminLink, guestLink string) error {
	m.Logger.Info().
		Str("to", to).
		Str("room_id", roomID).
		Str("subject", Subject(roomID, m.Zone)).
		Str("admin_link", adminLink).
		Str("guest_link", guestLink).
		Msg("admin link email")
	return nil
}
