package notifier

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dispatcher fans verification codes out to the channels an account has.
// A channel whose client is unconfigured is skipped with a warning so that
// local development works without vendor credentials. A configured channel
// that fails to deliver reports the error.
type Dispatcher struct {
	email *BrevoClient
	sms   *TwilioClient
	log   *zap.Logger
}

func NewDispatcher(email *BrevoClient, sms *TwilioClient, log *zap.Logger) *Dispatcher {
	return &Dispatcher{email: email, sms: sms, log: log}
}

// SendEmailOTP delivers a verification code to the given address.
func (d *Dispatcher) SendEmailOTP(ctx context.Context, toEmail, name, otp string) error {
	if !d.email.IsConfigured() {
		d.log.Warn("email client not configured, skipping verification email",
			zap.String("to", toEmail))
		return nil
	}
	subject := "Verify your account"
	html := fmt.Sprintf(
		"<p>Hi %s,</p><p>Your verification code is <strong>%s</strong>. It expires shortly, so please use it right away.</p>",
		name, otp)
	if err := d.email.SendEmail(ctx, toEmail, subject, html); err != nil {
		d.log.Error("failed to send verification email", zap.String("to", toEmail), zap.Error(err))
		return err
	}
	return nil
}

// SendSMSOTP delivers a verification code to the given phone number.
func (d *Dispatcher) SendSMSOTP(ctx context.Context, toPhone, otp string) error {
	if !d.sms.IsConfigured() {
		d.log.Warn("sms client not configured, skipping verification sms",
			zap.String("to", toPhone))
		return nil
	}
	msg := fmt.Sprintf("Your verification code is %s", otp)
	if err := d.sms.SendSMS(ctx, toPhone, msg); err != nil {
		d.log.Error("failed to send verification sms", zap.String("to", toPhone), zap.Error(err))
		return err
	}
	return nil
}
