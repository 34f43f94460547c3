package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tern/internal/delivery"
	"tern/internal/models"
	"tern/internal/utils/logger"
)

var runLog = logger.New("DELIVERY")

// ProgressPublisher receives progress snapshots as chunks resolve. The
// published snapshot is advisory; delivery never blocks on it.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, snap delivery.Snapshot) error
}

// DeliveryRunner executes the delivery of one accepted campaign. It is
// invoked by the task worker and owns the campaign's status transitions
// from SENDING through its terminal state.
type DeliveryRunner struct {
	campaigns *models.CampaignStore
	transport delivery.Transport
	progress  ProgressPublisher
}

// NewDeliveryRunner wires the delivery execution path.
func NewDeliveryRunner(campaigns *models.CampaignStore, transport delivery.Transport, progress ProgressPublisher) *DeliveryRunner {
	return &DeliveryRunner{
		campaigns: campaigns,
		transport: transport,
		progress:  progress,
	}
}

// Run delivers the campaign to the given addresses using the settings
// snapshot taken at dispatch time. It returns nil when the campaign
// reached a terminal state, even one with failures; the error return is
// reserved for runs that could not record an outcome at all.
func (r *DeliveryRunner) Run(ctx context.Context, campaignID string, addresses []string) error {
	campaign, err := r.campaigns.Get(ctx, campaignID)
	if err != nil {
		return runLog.Error("failed to load campaign "+campaignID, err)
	}
	if campaign.Status.IsTerminal() {
		runLog.Warn("campaign %s already resolved as %s, skipping", campaign.ID, campaign.Status)
		return nil
	}

	var settings delivery.Settings
	if err := json.Unmarshal(campaign.Settings, &settings); err != nil {
		return runLog.Error("failed to decode settings snapshot for campaign "+campaignID, err)
	}

	chunks, err := delivery.PlanChunks(addresses, settings.ChunkSize)
	if err != nil {
		return runLog.Error("failed to plan chunks for campaign "+campaignID, err)
	}

	if err := r.campaigns.MarkSending(ctx, campaign.ID); err != nil {
		if errors.Is(err, models.ErrCampaignAlreadyArchived) {
			runLog.Warn("campaign %s picked up twice, skipping duplicate run", campaign.ID)
			return nil
		}
		return runLog.Error("failed to mark campaign sending", err)
	}

	tracker := delivery.NewTracker(campaign.ID, len(chunks))
	dispatcher, err := delivery.NewDispatcher(r.transport, settings, tracker, runLog)
	if err != nil {
		// The settings snapshot was validated at dispatch acceptance, so
		// this only happens when the snapshot was corrupted in storage.
		campaign.Status = models.CampaignStatusFailed
		campaign.TotalFailed = campaign.RecipientCount
		campaign.SentAt = time.Now()
		if _, archiveErr := r.campaigns.Archive(context.WithoutCancel(ctx), campaign); archiveErr != nil {
			runLog.Error("failed to archive unstartable campaign", archiveErr)
		}
		return runLog.Error("failed to build dispatcher for campaign "+campaignID, err)
	}
	if r.progress != nil {
		dispatcher.OnProgress = func(snap delivery.Snapshot) {
			// Snapshots still publish after cancellation so the final
			// state reaches pollers.
			if pubErr := r.progress.PublishProgress(context.WithoutCancel(ctx), snap); pubErr != nil {
				runLog.Warn("failed to publish progress for campaign %s: %v", campaign.ID, pubErr)
			}
		}
	}

	msg := delivery.Message{
		CampaignID: campaign.ID,
		Subject:    campaign.Subject,
		Body:       campaign.Content,
	}
	runLog.Info("campaign %s: delivering to %d recipients in %d chunks",
		campaign.ID, len(addresses), len(chunks))

	summary, runErr := dispatcher.Run(ctx, msg, chunks)

	campaign.TotalSent = summary.TotalSent
	campaign.TotalFailed = summary.TotalFailed
	campaign.Status = models.TerminalStatus(summary.TotalSent, summary.TotalFailed)
	campaign.SentAt = time.Now()

	if _, err := r.campaigns.Archive(context.WithoutCancel(ctx), campaign); err != nil {
		return runLog.Error("failed to archive campaign "+campaignID, err)
	}

	switch {
	case runErr != nil:
		runLog.Warn("campaign %s interrupted: %d sent, %d failed (%v)",
			campaign.ID, summary.TotalSent, summary.TotalFailed, runErr)
	case campaign.Status == models.CampaignStatusSent:
		runLog.Success("campaign %s delivered to all %d recipients", campaign.ID, summary.TotalSent)
	default:
		runLog.Warn("campaign %s finished as %s: %d sent, %d failed",
			campaign.ID, campaign.Status, summary.TotalSent, summary.TotalFailed)
	}
	return nil
}
