package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base contains common columns for all tables
type Base struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// BeforeCreate will set a UUID rather than numeric ID
func (base *Base) BeforeCreate(tx *gorm.DB) error {
	if base.ID == "" {
		base.ID = uuid.New().String()
	}
	return nil
}

// CampaignStatus tracks a campaign through its delivery lifecycle.
type CampaignStatus string

const (
	CampaignStatusDraft CampaignStatus = "DRAFT"
	// CampaignStatusSending is set when the dispatcher picks the
	// campaign up; it is the only non-terminal post-draft state.
	CampaignStatusSending             CampaignStatus = "SENDING"
	CampaignStatusSent                CampaignStatus = "SENT"
	CampaignStatusCompletedWithErrors CampaignStatus = "COMPLETED_WITH_ERRORS"
	CampaignStatusFailed              CampaignStatus = "FAILED"
)

// IsTerminal reports whether no further transitions are allowed.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignStatusSent, CampaignStatusCompletedWithErrors, CampaignStatusFailed:
		return true
	default:
		return false
	}
}

// TerminalStatus derives the final campaign status from delivery totals:
// SENT when nothing failed, FAILED when nothing was delivered at all,
// COMPLETED_WITH_ERRORS for everything in between.
func TerminalStatus(sent, failed int) CampaignStatus {
	switch {
	case failed == 0:
		return CampaignStatusSent
	case sent == 0:
		return CampaignStatusFailed
	default:
		return CampaignStatusCompletedWithErrors
	}
}
