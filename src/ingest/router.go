package ingest

import (
	"context"
	"strings"

	"github.com/username/cachin/backend/src/mailmsg"
	"github.com/username/cachin/backend/src/models"
	"github.com/username/cachin/backend/src/parsers"
)

// Rule pairs a routing predicate with its format handler. Rules are
// evaluated in declaration order and the first match wins; a matched
// rule consumes the message even when its handler reports a failure.
type Rule struct {
	Name   string
	Match  func(env *mailmsg.Envelope, msg *models.EmailMessage) bool
	Handle func(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error)
}

func (s *Service) buildRules() []Rule {
	visa := parsers.NewVisaParser()
	chase := parsers.NewChaseParser()
	ibkr := parsers.NewIBKRParser()
	alignet := parsers.NewAlignetParser()
	midinero := parsers.NewMidineroParser()

	return []Rule{
		{
			Name: "forwarding-confirmation",
			Match: func(env *mailmsg.Envelope, msg *models.EmailMessage) bool {
				return parsers.IsForwardingConfirmation(senderAddress(msg.FromAddress), msg.Subject)
			},
			Handle: s.handleForwarding,
		},
		{
			Name: "chase",
			Match: func(env *mailmsg.Envelope, msg *models.EmailMessage) bool {
				subject := strings.ToLower(msg.Subject)
				return senderAddress(msg.FromAddress) == parsers.ChaseSender &&
					(strings.Contains(subject, "direct deposit") || strings.Contains(subject, "bill payment"))
			},
			Handle: func(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
				return s.handleChase(ctx, chase, env, msg)
			},
		},
		{
			Name: "ibkr",
			Match: func(env *mailmsg.Envelope, msg *models.EmailMessage) bool {
				return senderAddress(msg.FromAddress) == parsers.IBKRSender
			},
			Handle: func(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
				return s.handleIBKR(ctx, ibkr, env, msg)
			},
		},
		{
			Name: "visa",
			Match: func(env *mailmsg.Envelope, msg *models.EmailMessage) bool {
				return strings.Contains(senderAddress(msg.FromAddress), parsers.VisaSender) ||
					strings.Contains(strings.ToLower(msg.Subject), "visa")
			},
			Handle: func(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
				return s.handleVisa(ctx, visa, env, msg)
			},
		},
		{
			Name: "alignet",
			Match: func(env *mailmsg.Envelope, msg *models.EmailMessage) bool {
				subject := strings.ToLower(msg.Subject)
				return strings.Contains(subject, "alignet") || strings.Contains(subject, "código de seguridad")
			},
			Handle: func(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
				return s.handleAlignet(ctx, alignet, env, msg)
			},
		},
		{
			// Wallet notifications arrive through forwarding chains that
			// rewrite the From header, so the raw body is scanned too.
			Name: "midinero",
			Match: func(env *mailmsg.Envelope, msg *models.EmailMessage) bool {
				sender := senderAddress(msg.FromAddress)
				if sender == parsers.MidineroSender || strings.Contains(sender, "midinero") {
					return true
				}
				return strings.Contains(strings.ToLower(string(msg.RawEML)), parsers.MidineroDomain)
			},
			Handle: func(ctx context.Context, env *mailmsg.Envelope, msg *models.EmailMessage) (int, string, error) {
				return s.handleMidinero(ctx, midinero, env, msg)
			},
		},
	}
}
