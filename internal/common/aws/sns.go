// internal/common/aws/sns.go
package aws

import (
	"context"
	"errors"
	"fmt"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

var ErrSMSDisabled = errors.New("sms delivery disabled")

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SMSSender publishes transactional SMS messages directly to phone numbers.
type SMSSender struct {
	api      SNSService
	senderID string
}

func NewSMSSender(api SNSService, senderID string) *SMSSender {
	return &SMSSender{api: api, senderID: senderID}
}

// Send expects phone in E.164 form.
func (s *SMSSender) Send(ctx context.Context, phone, message string) (string, error) {
	if s == nil || s.api == nil {
		return "", ErrSMSDisabled
	}

	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {DataType: sdkaws.String("String"), StringValue: sdkaws.String("Transactional")},
	}
	if s.senderID != "" {
		attrs["AWS.SNS.SMS.SenderID"] = types.MessageAttributeValue{
			DataType:    sdkaws.String("String"),
			StringValue: sdkaws.String(s.senderID),
		}
	}

	out, err := s.api.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       sdkaws.String(phone),
		Message:           sdkaws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return "", fmt.Errorf("publish sms: %w", err)
	}
	return sdkaws.ToString(out.MessageId), nil
}
