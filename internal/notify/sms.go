package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/capitalize-ai/omnilead/internal/model"
)

// messageCreator is the part of the Twilio REST API the sender uses.
type messageCreator interface {
	CreateMessage(params *twilioapi.CreateMessageParams) (*twilioapi.ApiV2010Message, error)
}

// SMSSender sends text messages through the Twilio Messages API.
type SMSSender struct {
	api  messageCreator
	from string
}

// NewSMSSender creates a Twilio sender for the given account.
func NewSMSSender(accountSID, authToken, from string) *SMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &SMSSender{api: client.Api, from: from}
}

// Name returns the channel name.
func (s *SMSSender) Name() string { return "sms" }

// Send texts the notification to users with a phone number on file.
func (s *SMSSender) Send(ctx context.Context, user model.User, n Notification) error {
	if user.Phone == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioapi.CreateMessageParams{}
	params.SetTo(user.Phone)
	params.SetFrom(s.from)
	params.SetBody(n.Message)

	if _, err := s.api.CreateMessage(params); err != nil {
		return fmt.Errorf("twilio create message: %w", err)
	}
	return nil
}
