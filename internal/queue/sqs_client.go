package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

const (
	defaultSQSRegion = "us-east-1"
	// SQS caps per-message delay at 15 minutes.
	maxSQSDelay = 15 * time.Minute
)

// SQSClient sends queue messages to AWS SQS.
type SQSClient struct {
	client   *sqs.Client
	queueURL string
}

// NewSQSClient constructs an SQS-backed queue client.
func NewSQSClient(ctx context.Context, region, queueURL string) (*SQSClient, error) {
	queueURL = strings.TrimSpace(queueURL)
	if queueURL == "" {
		return nil, fmt.Errorf("RA_SQS_QUEUE_URL is required")
	}
	if strings.TrimSpace(region) == "" {
		region = defaultSQSRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SQSClient{
		client:   sqs.NewFromConfig(cfg),
		queueURL: queueURL,
	}, nil
}

// API exposes the underlying SQS client to the worker poll loop.
func (s *SQSClient) API() *sqs.Client { return s.client }

// QueueURL returns the configured queue URL.
func (s *SQSClient) QueueURL() string { return s.queueURL }

// Send delivers a message to the configured SQS queue.
func (s *SQSClient) Send(ctx context.Context, msg Message, opts ...SendOption) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(s.queueURL),
		MessageBody: aws.String(string(payload)),
	}
	if delay := sqsDelaySeconds(resolveOptions(opts).Delay); delay > 0 {
		input.DelaySeconds = delay
	}
	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

func sqsDelaySeconds(d time.Duration) int32 {
	if d <= 0 {
		return 0
	}
	if d > maxSQSDelay {
		d = maxSQSDelay
	}
	return int32((d + time.Second - 1) / time.Second)
}

var _ Client = (*SQSClient)(nil)
