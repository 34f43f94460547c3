package delivery

import (
	"context"
	"fmt"
)

// RecipientStore is the external lookup capability used to classify
// recipients. Implementations must be read-only.
type RecipientStore interface {
	Exists(ctx context.Context, address string) (bool, error)
}

// Classification reports how a valid address set splits between
// recipients already known to the store and new ones.
type Classification struct {
	Recipients         []Recipient
	NewRecipients      int
	ExistingRecipients int
	TotalValid         int
}

// Classify tags each address as new or existing against the store. Every
// input address is classified exactly once; no writes are performed. A
// store lookup failure aborts classification so counts never reflect a
// partially classified set.
func Classify(ctx context.Context, addresses []string, store RecipientStore) (Classification, error) {
	result := Classification{
		Recipients: make([]Recipient, 0, len(addresses)),
		TotalValid: len(addresses),
	}

	for _, address := range addresses {
		exists, err := store.Exists(ctx, address)
		if err != nil {
			return Classification{}, fmt.Errorf("recipient lookup for %s: %w", address, err)
		}
		if exists {
			result.ExistingRecipients++
		} else {
			result.NewRecipients++
		}
		result.Recipients = append(result.Recipients, Recipient{
			Address: address,
			IsNew:   !exists,
		})
	}

	return result, nil
}
