package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRunner struct {
	campaignID string
	addresses  []string
	err        error
}

func (f *fakeRunner) Run(_ context.Context, campaignID string, addresses []string) error {
	f.campaignID = campaignID
	f.addresses = addresses
	return f.err
}

func dispatchTask(t *testing.T, task CampaignDispatchTask) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(task)
	require.NoError(t, err)
	return asynq.NewTask(TaskTypeCampaignDispatch, payload)
}

func TestHandleCampaignDispatch(t *testing.T) {
	runner := &fakeRunner{}
	handler := NewTaskHandler(runner, nil, zap.NewNop())

	task := dispatchTask(t, CampaignDispatchTask{
		CampaignID: "cmp-1",
		Addresses:  []string{"a@example.com", "b@example.com"},
	})
	require.NoError(t, handler.HandleCampaignDispatch(context.Background(), task))

	assert.Equal(t, "cmp-1", runner.campaignID)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, runner.addresses)
}

func TestHandleCampaignDispatchDoesNotRetryFailedRuns(t *testing.T) {
	runner := &fakeRunner{err: errors.New("transport unavailable")}
	handler := NewTaskHandler(runner, nil, zap.NewNop())

	task := dispatchTask(t, CampaignDispatchTask{CampaignID: "cmp-1"})
	// The run recorded its terminal state; a task retry would redeliver.
	assert.NoError(t, handler.HandleCampaignDispatch(context.Background(), task))
}

func TestHandleCampaignDispatchSkipsMalformedPayload(t *testing.T) {
	handler := NewTaskHandler(&fakeRunner{}, nil, zap.NewNop())

	task := asynq.NewTask(TaskTypeCampaignDispatch, []byte("not json"))
	err := handler.HandleCampaignDispatch(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
