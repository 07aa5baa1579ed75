package sns

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/go-membership-api/internal/config"
)

// Alerter raises operational alerts, e.g. identifier exhaustion.
type Alerter interface {
	Alert(ctx context.Context, subject, message string) error
}

type publishAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type topicAlerter struct {
	client   publishAPI
	topicARN string
}

type noopAlerter struct{}

func (noopAlerter) Alert(context.Context, string, string) error { return nil }

// NewAlerter publishes alerts to cfg.AlertTopicARN. Without a topic it returns
// an Alerter that drops every alert.
func NewAlerter(ctx context.Context, cfg *config.Config) (Alerter, error) {
	if cfg.AlertTopicARN == "" {
		return noopAlerter{}, nil
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.SNSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if cfg.AWSEndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		}
	})
	return newTopicAlerter(client, cfg.AlertTopicARN), nil
}

func newTopicAlerter(client publishAPI, topicARN string) *topicAlerter {
	return &topicAlerter{client: client, topicARN: topicARN}
}

func (a *topicAlerter) Alert(ctx context.Context, subject, message string) error {
	// SNS rejects subjects longer than 100 characters.
	if len(subject) > 100 {
		subject = subject[:100]
	}
	_, err := a.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(a.topicARN),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return fmt.Errorf("publish alert: %w", err)
	}
	return nil
}
