package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskCarriesMessage(t *testing.T) {
	msg := NewMessage("r-1", "req-1", 0)

	task, err := NewTask(msg)
	require.NoError(t, err)
	assert.Equal(t, TaskTypeProcessResume, task.Type())

	decoded, err := DecodeMessage(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)
}

func TestAsynqHandlerDecodesPayload(t *testing.T) {
	var got Message
	h := AsynqHandler(func(_ context.Context, msg Message) error {
		got = msg
		return nil
	})

	task, err := NewTask(NewMessage("r-9", "req-9", 1))
	require.NoError(t, err)
	require.NoError(t, h.ProcessTask(context.Background(), task))
	assert.Equal(t, "r-9", got.ResumeID)
}

func TestAsynqHandlerSkipsRetryOnBadPayload(t *testing.T) {
	h := AsynqHandler(func(context.Context, Message) error {
		t.Fatal("handler must not run")
		return nil
	})

	err := h.ProcessTask(context.Background(), asynq.NewTask(TaskTypeProcessResume, []byte("{")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, asynq.SkipRetry))
}
