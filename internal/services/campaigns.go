package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"

	"tern/internal/delivery"
	"tern/internal/models"
	"tern/internal/tasks"
	"tern/internal/transport"
	"tern/internal/utils/logger"
)

var log = logger.New("CAMPAIGNS")

// ValidationSummary is the synchronous response to a recipient list
// submission, before any dispatch begins.
type ValidationSummary struct {
	TotalValid         int      `json:"totalValid"`
	NewRecipients      int      `json:"newRecipients"`
	ExistingRecipients int      `json:"existingRecipients"`
	InvalidEmails      []string `json:"invalidEmails"`
}

// DispatchRequest is the full dispatch invocation contract.
type DispatchRequest struct {
	Subject       string
	Content       string
	RawRecipients string
	Settings      delivery.Settings
	ScheduledAt   time.Time
}

// DispatchResult reports the accepted campaign, or a validation-only
// outcome when no valid recipients were found.
type DispatchResult struct {
	CampaignID  string            `json:"campaignId,omitempty"`
	TotalChunks int               `json:"totalChunks"`
	Validation  ValidationSummary `json:"validation"`
}

// Accepted reports whether a campaign was created and queued.
func (r DispatchResult) Accepted() bool { return r.CampaignID != "" }

// CampaignService accepts dispatch requests: it validates and classifies
// recipients, snapshots settings, creates the campaign record, and hands
// delivery to the task queue.
type CampaignService struct {
	campaigns  *models.CampaignStore
	recipients delivery.RecipientStore
	tasks      *tasks.TaskClient
	smtp       transport.Config
}

// NewCampaignService wires the campaign acceptance path.
func NewCampaignService(campaigns *models.CampaignStore, recipients delivery.RecipientStore, taskClient *tasks.TaskClient, smtp transport.Config) *CampaignService {
	return &CampaignService{
		campaigns:  campaigns,
		recipients: recipients,
		tasks:      taskClient,
		smtp:       smtp,
	}
}

// ValidateRecipients parses and classifies a raw recipient list without
// side effects. The returned slice holds the valid addresses in stable
// order for chunk planning.
func (s *CampaignService) ValidateRecipients(ctx context.Context, raw string) (ValidationSummary, []string, error) {
	parsed := delivery.ParseRecipients(raw)

	summary := ValidationSummary{
		TotalValid:    len(parsed.Valid),
		InvalidEmails: parsed.Invalid,
	}
	if summary.InvalidEmails == nil {
		summary.InvalidEmails = []string{}
	}
	if len(parsed.Valid) == 0 {
		return summary, nil, nil
	}

	classification, err := delivery.Classify(ctx, parsed.Valid, s.recipients)
	if err != nil {
		return ValidationSummary{}, nil, log.Error("failed to classify recipients", err)
	}
	summary.NewRecipients = classification.NewRecipients
	summary.ExistingRecipients = classification.ExistingRecipients

	return summary, parsed.Valid, nil
}

// Dispatch validates the request and, when there is at least one valid
// recipient, creates the campaign and enqueues its delivery. Settings
// and transport problems are fatal here; the campaign never enters
// sending on a bad configuration.
func (s *CampaignService) Dispatch(ctx context.Context, req DispatchRequest) (*DispatchResult, error) {
	if err := req.Settings.Validate(); err != nil {
		return nil, err
	}
	if err := s.smtp.Validate(); err != nil {
		return nil, err
	}

	summary, valid, err := s.ValidateRecipients(ctx, req.RawRecipients)
	if err != nil {
		return nil, err
	}

	result := &DispatchResult{Validation: summary}
	if summary.TotalValid == 0 {
		log.Warn("dispatch skipped: no valid recipients in submission")
		return result, nil
	}

	chunks, err := delivery.PlanChunks(valid, req.Settings.ChunkSize)
	if err != nil {
		return nil, err
	}
	result.TotalChunks = len(chunks)

	snapshot, err := json.Marshal(req.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize settings snapshot: %w", err)
	}

	campaign := &models.Campaign{
		Subject:           req.Subject,
		Content:           req.Content,
		RecipientCount:    len(valid),
		Status:            models.CampaignStatusDraft,
		Settings:          datatypes.JSON(snapshot),
		InvalidRecipients: pq.StringArray(summary.InvalidEmails),
		ScheduledAt:       req.ScheduledAt,
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return nil, log.Error("failed to create campaign record", err)
	}
	result.CampaignID = campaign.ID

	task := tasks.CampaignDispatchTask{
		CampaignID:  campaign.ID,
		Addresses:   valid,
		ScheduledAt: req.ScheduledAt,
	}
	if err := s.tasks.EnqueueCampaignDispatch(ctx, task); err != nil {
		return nil, log.Error("failed to enqueue campaign dispatch", err)
	}

	log.Success("campaign %s accepted: %d recipients in %d chunks",
		campaign.ID, len(valid), len(chunks))
	return result, nil
}
