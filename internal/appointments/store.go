package appointments

import "context"

// Store is the appointment record store contract.
type Store interface {
	Get(ctx context.Context, appointmentID string) (*Record, error)
	// SaveSchedule creates or overwrites the scheduling fields of a record,
	// leaving confirmed_at untouched.
	SaveSchedule(ctx context.Context, rec *Record) error
	// MarkConfirmed sets confirmed_at once; later calls return ErrAlreadyConfirmed.
	MarkConfirmed(ctx context.Context, appointmentID, confirmedAt string) error
	Delete(ctx context.Context, appointmentID string) error
	// QueryByPatient returns the patient's appointments whose time sorts
	// strictly after the given value, earliest first.
	QueryByPatient(ctx context.Context, phoneE164, after string, limit int) ([]Record, error)
}

// NextFutureForPatient returns the earliest appointment strictly after now
// (a Z-suffixed UTC timestamp), or ErrNotFound.
func NextFutureForPatient(ctx context.Context, store Store, phoneE164, now string) (*Record, error) {
	items, err := store.QueryByPatient(ctx, phoneE164, now, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotFound
	}
	rec := items[0]
	return &rec, nil
}
