package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"resume-screening/internal/bootstrap"
	"resume-screening/internal/queue"
	"resume-screening/internal/shared/config"
	"resume-screening/internal/shared/metrics"
	"resume-screening/internal/shared/telemetry"
	"resume-screening/internal/workerproc"
)

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func runSQS(ctx context.Context, app *bootstrap.App, cfg config.Config, shutdownTimeout time.Duration) error {
	client, ok := app.Queue.(*queue.SQSClient)
	if !ok {
		return fmt.Errorf("sqs backend selected but queue is %T", app.Queue)
	}
	visibilitySeconds := envInt("RA_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	pollSQS(ctx, client.API(), client.QueueURL(), app.Runner, max(1, cfg.WorkerConcurrency), visibilitySeconds, shutdownTimeout)
	return nil
}

func pollSQS(ctx context.Context, client sqsAPI, queueURL string, p workerproc.Processor, concurrency, visibilitySeconds int, shutdownTimeout time.Duration) {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	telemetry.Info("worker.sqs.polling", map[string]any{
		"queue":       queueURL,
		"concurrency": concurrency,
		"visibility":  visibilitySeconds,
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
			VisibilityTimeout:   int32(visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("worker.sqs.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncMessage(metrics.MessageReceived)
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// In-flight attempts finish even after shutdown is requested.
				handleMessage(context.WithoutCancel(ctx), client, queueURL, p, m)
			}(msg)
		}
	}

	telemetry.Info("worker.sqs.draining", map[string]any{"timeout": shutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.sqs.shutdown_timeout", nil)
	}
}

// handleMessage deletes the message when it was processed or can never be;
// otherwise it is left for redelivery after the visibility timeout.
func handleMessage(ctx context.Context, client sqsAPI, queueURL string, p workerproc.Processor, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)

	decoded, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, decoded.ResumeID, decoded.RequestID)
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()
		telemetry.Error("worker.resume.invalid_message", fields)
		if deleteMessage(ctx, client, queueURL, msg, decoded.ResumeID, decoded.RequestID) {
			metrics.IncMessage(metrics.MessageUnrecoverable)
		}
		return
	}

	telemetry.Info("worker.resume.received", baseFields(msg, decoded.ResumeID, decoded.RequestID))

	ctxWithParsed := workerproc.WithParsedMessage(ctx, decoded)
	if err := workerproc.HandleMessage(ctxWithParsed, p, body); err != nil {
		fields := baseFields(msg, decoded.ResumeID, decoded.RequestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.resume.failed", fields)
		metrics.IncMessage(metrics.MessageFailed)
		return
	}

	if deleteMessage(ctx, client, queueURL, msg, decoded.ResumeID, decoded.RequestID) {
		telemetry.Info("worker.resume.completed", baseFields(msg, decoded.ResumeID, decoded.RequestID))
		metrics.IncMessage(metrics.MessageCompleted)
	}
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message, resumeID, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, resumeID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.resume.delete_failed", fields)
		return false
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, resumeID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.resume.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, resumeID, requestID string) map[string]any {
	fields := map[string]any{
		"resumeId":       resumeID,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}
