// Package notify - outbound notification delivery
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/alwitt/goutils"
	"github.com/apex/log"
	"github.com/wneessen/go-mail"
)

// DefaultSendTimeout bound on one complete SMTP exchange
const DefaultSendTimeout = time.Second * 20

// Sink abstracts outbound message delivery.
//
// Implementations convert every transport failure into an error return;
// nothing here may panic into the caller. A production deployment can swap
// in any transactional email provider behind this contract.
type Sink interface {
	/*
		Send deliver one message

			@param ctx context.Context - execution context
			@param toAddress string - recipient address
			@param subject string - message subject
			@param body string - plain text message body
	*/
	Send(ctx context.Context, toAddress string, subject string, body string) error
}

// SMTPSinkParams SMTP sink init parameters
type SMTPSinkParams struct {
	// Host SMTP server host
	Host string `validate:"required"`
	// Port SMTP server port
	Port int `validate:"required,gt=0"`
	// User SMTP auth user
	User string
	// Password SMTP auth password
	Password string
	// FromAddress sender address
	FromAddress string `validate:"required,email"`
	// SendTimeout bound on one complete SMTP exchange
	SendTimeout time.Duration
}

// smtpSink implements Sink over SMTP with STARTTLS
type smtpSink struct {
	goutils.Component
	client *mail.Client
	from   string
}

/*
NewSMTPSink define new SMTP notification sink

	@param params SMTPSinkParams - sink parameters
	@returns sink instance
*/
func NewSMTPSink(params SMTPSinkParams) (Sink, error) {
	timeout := params.SendTimeout
	if timeout == 0 {
		timeout = DefaultSendTimeout
	}

	opts := []mail.Option{
		mail.WithPort(params.Port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(timeout),
	}
	if params.User != "" {
		opts = append(
			opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(params.User),
			mail.WithPassword(params.Password),
		)
	}

	client, err := mail.NewClient(params.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare SMTP client [%w]", err)
	}

	logTags := log.Fields{"module": "notify", "component": "smtp-sink"}

	return &smtpSink{
		Component: goutils.Component{
			LogTags: logTags,
			LogTagModifiers: []goutils.LogMetadataModifier{
				goutils.ModifyLogMetadataByRestRequestParam,
			},
		},
		client: client,
		from:   params.FromAddress,
	}, nil
}

/*
Send deliver one message

	@param ctx context.Context - execution context
	@param toAddress string - recipient address
	@param subject string - message subject
	@param body string - plain text message body
*/
func (s *smtpSink) Send(
	ctx context.Context, toAddress string, subject string, body string,
) error {
	msg := mail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address '%s' [%w]", s.from, err)
	}
	if err := msg.To(toAddress); err != nil {
		return fmt.Errorf("invalid recipient address '%s' [%w]", toAddress, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to deliver message to '%s' [%w]", toAddress, err)
	}

	return nil
}
