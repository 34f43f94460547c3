package models

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Subscriber is a known recipient address. Ownership of the subscriber
// roster lives with the membership portal; the delivery pipeline only
// reads it to classify campaign recipients as new or existing.
type Subscriber struct {
	Base
	Email string `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
}

// SubscriberStore exposes read-only recipient lookups for classification.
type SubscriberStore struct {
	db *gorm.DB
}

func NewSubscriberStore(db *gorm.DB) *SubscriberStore {
	return &SubscriberStore{db: db}
}

// Exists reports whether the address is already on the roster.
func (s *SubscriberStore) Exists(ctx context.Context, address string) (bool, error) {
	var sub Subscriber
	err := s.db.WithContext(ctx).Select("id").First(&sub, "email = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
