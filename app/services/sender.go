package services

import "klik-guard/global"

// Sender delivers account emails. Delivery is an external collaborator;
// LogSender stands in wherever no real transport is configured.
type Sender interface {
	Send(to, subject, body string) error
}

type LogSender struct{}

func (LogSender) Send(to, subject, body string) error {
	global.Logger.Info().Str("to", to).Str("subject", subject).Msg("email (log sender)")
	return nil
}
