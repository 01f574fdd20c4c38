// internal/common/aws/aws.go
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// Clients bundles the SDK clients built from one shared AWS config.
type Clients struct {
	SES     *ses.Client
	SNS     *sns.Client
	S3      *s3.Client
	Presign *s3.PresignClient
}

// NewClients loads the default credential chain for region.
func NewClients(ctx context.Context, region string) (*Clients, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	s3Client := s3.NewFromConfig(cfg)
	return &Clients{
		SES:     ses.NewFromConfig(cfg),
		SNS:     sns.NewFromConfig(cfg),
		S3:      s3Client,
		Presign: s3.NewPresignClient(s3Client),
	}, nil
}
