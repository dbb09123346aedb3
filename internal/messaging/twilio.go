// Package messaging talks to the SMS and Telegram services users text from.
package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/Veraticus/textledger/internal/common"
	"github.com/twilio/twilio-go"
	"github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
)

// messageCreator is the slice of the Twilio REST API the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

// SMSSender sends text messages through Twilio.
type SMSSender struct {
	api    messageCreator
	logger *slog.Logger
	from   string
}

// NewSMSSender creates a sender for the given account. All arguments are required.
func NewSMSSender(accountSID, authToken, from string, logger *slog.Logger) (*SMSSender, error) {
	if accountSID == "" || authToken == "" || from == "" {
		return nil, fmt.Errorf("%w: TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_NUMBER are required", common.ErrMissingConfig)
	}

	rest := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})

	return newSMSSender(rest.Api, from, logger), nil
}

func newSMSSender(api messageCreator, from string, logger *slog.Logger) *SMSSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &SMSSender{api: api, from: from, logger: logger}
}

// Send delivers body to the number to and returns the message SID.
func (s *SMSSender) Send(ctx context.Context, to, body string) (string, error) {
	if to == "" {
		return "", fmt.Errorf("%w: recipient number is required", common.ErrMissingConfig)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(s.from)
	params.SetBody(body)

	resp, err := s.api.CreateMessage(params)
	if err != nil {
		return "", fmt.Errorf("%w: twilio create message: %w", common.ErrUpstreamCall, err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	s.logger.Info("sent sms", "to", to, "sid", sid)

	return sid, nil
}

// SignatureValidator checks the X-Twilio-Signature header of webhook calls.
type SignatureValidator struct {
	validator client.RequestValidator
}

// NewSignatureValidator creates a validator keyed by the account auth token.
func NewSignatureValidator(authToken string) *SignatureValidator {
	return &SignatureValidator{validator: client.NewRequestValidator(authToken)}
}

// Valid reports whether signature matches the public requestURL and form.
func (v *SignatureValidator) Valid(requestURL string, form url.Values, signature string) bool {
	if signature == "" {
		return false
	}

	params := make(map[string]string, len(form))
	for key := range form {
		params[key] = form.Get(key)
	}

	return v.validator.Validate(requestURL, params, signature)
}

// RenderTwiML renders a messaging response that replies with body.
// An empty body renders a response with no message.
func RenderTwiML(body string) (string, error) {
	var verbs []twiml.Element
	if body != "" {
		verbs = append(verbs, &twiml.MessagingMessage{Body: body})
	}

	doc, err := twiml.Messages(verbs)
	if err != nil {
		return "", fmt.Errorf("failed to render twiml: %w", err)
	}
	return doc, nil
}
