package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
)

// TaskTypeProcessResume is the asynq task type for processing attempts.
const TaskTypeProcessResume = "resume:process"

// DefaultAsynqQueue is the asynq queue that carries resume tasks.
const DefaultAsynqQueue = "resumes"

// AsynqClient enqueues messages as asynq tasks on Redis.
type AsynqClient struct {
	client *asynq.Client
	queue  string
}

// NewAsynqClient connects an asynq client to redisAddr.
func NewAsynqClient(redisAddr string) (*AsynqClient, error) {
	redisAddr = strings.TrimSpace(redisAddr)
	if redisAddr == "" {
		return nil, fmt.Errorf("REDIS_ADDR is required")
	}
	return &AsynqClient{
		client: asynq.NewClient(asynq.RedisClientOpt{Addr: redisAddr}),
		queue:  DefaultAsynqQueue,
	}, nil
}

// NewTask wraps a message in an asynq task.
func NewTask(msg Message) (*asynq.Task, error) {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeProcessResume, payload), nil
}

// Send enqueues a task. Retries are disabled: the pipeline owns the retry budget.
func (c *AsynqClient) Send(ctx context.Context, msg Message, opts ...SendOption) error {
	task, err := NewTask(msg)
	if err != nil {
		return fmt.Errorf("encode asynq task: %w", err)
	}
	taskOpts := []asynq.Option{asynq.Queue(c.queue), asynq.MaxRetry(0)}
	if delay := resolveOptions(opts).Delay; delay > 0 {
		taskOpts = append(taskOpts, asynq.ProcessIn(delay))
	}
	if _, err := c.client.EnqueueContext(ctx, task, taskOpts...); err != nil {
		return fmt.Errorf("asynq enqueue: %w", err)
	}
	return nil
}

// Close releases the Redis connection.
func (c *AsynqClient) Close() error {
	return c.client.Close()
}

// NewAsynqServer builds an asynq server that consumes the resume queue.
func NewAsynqServer(redisAddr string, concurrency int) *asynq.Server {
	if concurrency <= 0 {
		concurrency = 1
	}
	return asynq.NewServer(asynq.RedisClientOpt{Addr: redisAddr}, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{DefaultAsynqQueue: 1},
	})
}

// AsynqHandler adapts a Handler to asynq. Undecodable payloads are skipped.
func AsynqHandler(handle Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
		msg, err := DecodeMessage(task.Payload())
		if err != nil {
			return fmt.Errorf("decode task payload: %v: %w", err, asynq.SkipRetry)
		}
		return handle(ctx, msg)
	})
}

var _ Client = (*AsynqClient)(nil)
