package conversation

import (
	"context"
)

// Store is the persistence contract for conversation records. Backends are
// swappable (file, redis, sql); only this contract matters to the core.
//
// Replace is a full-record overwrite guarded by the record's Version: the
// write fails with a CONFLICT error when the stored version no longer matches
// the version the caller read. Callers re-read and retry from the last
// committed state.
type Store interface {
	// GetOrCreate returns the record for phone, creating a fresh NEW record
	// on first contact.
	GetOrCreate(ctx context.Context, phone string) (*Record, error)

	// Replace persists rec as the new full record for phone, bumping its
	// version. The returned record is the stored copy.
	Replace(ctx context.Context, phone string, rec *Record) (*Record, error)

	// ListAll returns every record. Used by the payment webhook path to
	// find a conversation by payment link id.
	ListAll(ctx context.Context) ([]*Record, error)
}

// FindByPaymentLink scans all records for the conversation holding the given
// payment link id. The payment webhook carries no address, so the link id is
// the only join key back to a conversation.
func FindByPaymentLink(ctx context.Context, store Store, paymentLinkID string) (*Record, error) {
	if paymentLinkID == "" {
		return nil, nil
	}
	records, err := store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Order != nil && rec.Order.PaymentLinkID == paymentLinkID {
			return rec, nil
		}
	}
	return nil, nil
}
