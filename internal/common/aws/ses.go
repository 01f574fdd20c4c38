// internal/common/aws/ses.go
package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

var ErrMailerDisabled = errors.New("email delivery disabled")

// SESService is the subset of the SES client used here.
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Mailer sends plain-text notification emails.
type Mailer struct {
	api  SESService
	from string
}

// NewMailer returns a Mailer. A nil api yields a mailer that always returns ErrMailerDisabled.
func NewMailer(api SESService, from string) *Mailer {
	return &Mailer{api: api, from: from}
}

func (m *Mailer) SendText(ctx context.Context, to []string, subject, body string) (string, error) {
	if m == nil || m.api == nil {
		return "", ErrMailerDisabled
	}
	if len(to) == 0 {
		return "", fmt.Errorf("send email: no recipients")
	}

	out, err := m.api.SendEmail(ctx, &ses.SendEmailInput{
		Source:      sdkaws.String(m.from),
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: sdkaws.String(subject), Charset: sdkaws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: sdkaws.String(body), Charset: sdkaws.String("UTF-8")},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("send email: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
