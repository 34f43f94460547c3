package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tern/internal/delivery"
	"tern/internal/transport"
)

type fakeSubscribers struct {
	existing map[string]bool
	err      error
}

func (f *fakeSubscribers) Exists(_ context.Context, address string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.existing[address], nil
}

func validSettings() delivery.Settings {
	return delivery.Settings{
		BatchSize:       5,
		ChunkSize:       10,
		MaxRetries:      3,
		MaxBackoffDelay: 30 * time.Second,
	}
}

func validSMTP() transport.Config {
	return transport.Config{
		Host:      "smtp.example.com",
		Port:      587,
		FromEmail: "news@example.com",
	}
}

func TestValidateRecipients(t *testing.T) {
	store := &fakeSubscribers{existing: map[string]bool{"member@example.com": true}}
	service := NewCampaignService(nil, store, nil, validSMTP())

	summary, valid, err := service.ValidateRecipients(context.Background(),
		"member@example.com\nnew@example.com\nbogus\nMEMBER@example.com")
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalValid)
	assert.Equal(t, 1, summary.NewRecipients)
	assert.Equal(t, 1, summary.ExistingRecipients)
	assert.Equal(t, []string{"bogus"}, summary.InvalidEmails)
	assert.Equal(t, []string{"member@example.com", "new@example.com"}, valid)
}

func TestValidateRecipientsAllInvalid(t *testing.T) {
	service := NewCampaignService(nil, &fakeSubscribers{}, nil, validSMTP())

	summary, valid, err := service.ValidateRecipients(context.Background(), "bogus\nstill-bogus")
	require.NoError(t, err)

	assert.Zero(t, summary.TotalValid)
	assert.Equal(t, []string{"bogus", "still-bogus"}, summary.InvalidEmails)
	assert.Empty(t, valid)
}

func TestValidateRecipientsEmptyInputYieldsEmptySlice(t *testing.T) {
	service := NewCampaignService(nil, &fakeSubscribers{}, nil, validSMTP())

	summary, _, err := service.ValidateRecipients(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, summary.InvalidEmails)
	assert.Empty(t, summary.InvalidEmails)
}

func TestValidateRecipientsPropagatesLookupError(t *testing.T) {
	lookupErr := errors.New("database unavailable")
	service := NewCampaignService(nil, &fakeSubscribers{err: lookupErr}, nil, validSMTP())

	_, _, err := service.ValidateRecipients(context.Background(), "a@example.com")
	assert.ErrorIs(t, err, lookupErr)
}

func TestDispatchRejectsBadSettings(t *testing.T) {
	service := NewCampaignService(nil, &fakeSubscribers{}, nil, validSMTP())

	settings := validSettings()
	settings.ChunkSize = 0
	_, err := service.Dispatch(context.Background(), DispatchRequest{
		Subject: "s", Content: "b", RawRecipients: "a@example.com", Settings: settings,
	})
	assert.ErrorIs(t, err, delivery.ErrInvalidChunkSize)
}

func TestDispatchRejectsBadTransportConfig(t *testing.T) {
	service := NewCampaignService(nil, &fakeSubscribers{}, nil, transport.Config{})

	_, err := service.Dispatch(context.Background(), DispatchRequest{
		Subject: "s", Content: "b", RawRecipients: "a@example.com", Settings: validSettings(),
	})
	assert.Error(t, err)
}

func TestDispatchWithNoValidRecipientsCreatesNothing(t *testing.T) {
	// The nil campaign store and task client guarantee the test fails
	// loudly if dispatch proceeds past validation.
	service := NewCampaignService(nil, &fakeSubscribers{}, nil, validSMTP())

	result, err := service.Dispatch(context.Background(), DispatchRequest{
		Subject:       "s",
		Content:       "b",
		RawRecipients: "not-an-email\nalso bad",
		Settings:      validSettings(),
	})
	require.NoError(t, err)

	assert.False(t, result.Accepted())
	assert.Empty(t, result.CampaignID)
	assert.Zero(t, result.TotalChunks)
	assert.Zero(t, result.Validation.TotalValid)
	assert.Len(t, result.Validation.InvalidEmails, 2)
}
