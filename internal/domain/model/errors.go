package model

import (
	"errors"
	"fmt"
)

var (
	// ErrOutsideProperty click landed outside every property polygon
	ErrOutsideProperty = errors.New("point is outside the property boundary")
	// ErrMalformedBoundary boundary data could not be loaded
	ErrMalformedBoundary = errors.New("malformed property boundary data")
	// ErrPersistenceWrite the backend rejected a donation batch
	ErrPersistenceWrite = errors.New("donation write failed")
	// ErrPersistenceRead the backend could not be read and no snapshot was available
	ErrPersistenceRead = errors.New("donation read failed")

	ErrEmptySelection    = errors.New("no squares selected")
	ErrInvalidCellKey    = errors.New("invalid cell key")
	ErrInvalidViewport   = errors.New("invalid viewport")
	ErrSessionNotFound   = errors.New("selection session not found")
	ErrDonationNotFound  = errors.New("donation not found")
	ErrPendingNotFound   = errors.New("pending checkout not found")
	ErrSnapshotMissing   = errors.New("donation snapshot not cached")
	ErrTestModeDisabled  = errors.New("test mode is disabled")
	ErrInvalidWebhook    = errors.New("invalid webhook payload")
	ErrPaymentProvider   = errors.New("payment provider error")
	ErrEmailNotDelivered = errors.New("confirmation email not delivered")
)

// AlreadyDonatedWarning advisory result of clicking a donated square; selection still proceeds
type AlreadyDonatedWarning struct {
	Key   CellKey `json:"key"`
	Donor string  `json:"donor"`
}

func (w *AlreadyDonatedWarning) String() string {
	return fmt.Sprintf("square %s is already donated by %s", w.Key, w.Donor)
}
