package models

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrCampaignNotFound is returned when a campaign id does not exist.
var ErrCampaignNotFound = errors.New("campaign not found")

// ErrCampaignAlreadyArchived is returned when a terminal write is
// attempted against a campaign that already resolved.
var ErrCampaignAlreadyArchived = errors.New("campaign already archived")

// Campaign is the durable delivery record for one newsletter send.
// Content is an opaque rendered payload; this subsystem never templates.
type Campaign struct {
	Base
	Subject        string         `gorm:"not null" json:"subject" validate:"required"`
	Content        string         `gorm:"not null;type:text" json:"content" validate:"required"`
	RecipientCount int            `gorm:"not null;default:0" json:"recipientCount"`
	Status         CampaignStatus `gorm:"not null;default:'DRAFT'" json:"status"`
	// Settings is the per-run snapshot of delivery settings, serialized
	// once when dispatch is accepted.
	Settings          datatypes.JSON `gorm:"type:jsonb;default:'{}'" json:"settings"`
	InvalidRecipients pq.StringArray `gorm:"type:text[]" json:"invalidRecipients,omitempty"`
	TotalSent         int            `gorm:"not null;default:0" json:"totalSent"`
	TotalFailed       int            `gorm:"not null;default:0" json:"totalFailed"`
	ScheduledAt       time.Time      `json:"scheduledAt,omitempty"`
	SentAt            time.Time      `json:"sentAt,omitempty"`
}

// CampaignStore persists campaign delivery records.
type CampaignStore struct {
	db *gorm.DB
}

// NewCampaignStore creates a campaign store backed by the given database.
func NewCampaignStore(db *gorm.DB) *CampaignStore {
	return &CampaignStore{db: db}
}

// Create inserts a new campaign record in DRAFT state.
func (s *CampaignStore) Create(ctx context.Context, c *Campaign) error {
	return s.db.WithContext(ctx).Create(c).Error
}

// Get fetches a campaign by id.
func (s *CampaignStore) Get(ctx context.Context, id string) (*Campaign, error) {
	var c Campaign
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &c, nil
}

// MarkSending transitions a campaign from DRAFT to SENDING. The guarded
// update makes a duplicate dispatch of the same campaign a no-op.
func (s *CampaignStore) MarkSending(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).
		Model(&Campaign{}).
		Where("id = ? AND status = ?", id, CampaignStatusDraft).
		Update("status", CampaignStatusSending)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCampaignAlreadyArchived
	}
	return nil
}

// Archive writes the terminal campaign state exactly once and returns the
// campaign id. Subsequent calls fail with ErrCampaignAlreadyArchived.
func (s *CampaignStore) Archive(ctx context.Context, c *Campaign) (string, error) {
	if !c.Status.IsTerminal() {
		return "", errors.New("archive requires a terminal campaign status")
	}
	res := s.db.WithContext(ctx).
		Model(&Campaign{}).
		Where("id = ? AND status = ?", c.ID, CampaignStatusSending).
		Updates(map[string]interface{}{
			"status":       c.Status,
			"total_sent":   c.TotalSent,
			"total_failed": c.TotalFailed,
			"sent_at":      c.SentAt,
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", ErrCampaignAlreadyArchived
	}
	return c.ID, nil
}

// PruneDrafts deletes draft campaigns older than the cutoff and reports
// how many rows were removed.
func (s *CampaignStore) PruneDrafts(ctx context.Context, olderThan time.Time) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", CampaignStatusDraft, olderThan).
		Delete(&Campaign{})
	return res.RowsAffected, res.Error
}
