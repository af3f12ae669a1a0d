package services

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/types/progress"
)

const UsersCollection = "users"

// calendarDay is the civil date of now in loc.
func calendarDay(now time.Time, loc *time.Location) civil.Date {
	return civil.DateOf(now.In(loc))
}

// storeErr passes typed errors through and classifies everything else as a
// store outage. A caller that cancelled gets its own error back.
func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return apperr.Unavailable(op, err)
}

// readProgress loads users/{uid} inside a transaction.
func readProgress(tx docstore.Tx, op, userID string) (progress.UserProgress, error) {
	snap, err := tx.Get(UsersCollection, userID)
	if err != nil {
		if docstore.IsNotFound(err) {
			return progress.UserProgress{}, apperr.New(op, apperr.ErrNotFound, "no phase selected yet")
		}
		return progress.UserProgress{}, err
	}
	return decodeProgress(snap, op, userID)
}

func decodeProgress(snap docstore.Snapshot, op, userID string) (progress.UserProgress, error) {
	var rec progress.Record
	if err := snap.DataTo(&rec); err != nil {
		return progress.UserProgress{}, err
	}
	p, err := progress.FromRecord(userID, rec)
	if err != nil {
		return progress.UserProgress{}, apperr.Wrap(op, apperr.ErrStoreUnavailable, "corrupt progress record", err)
	}
	return p, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}

func isAlreadyCompleted(err error) bool {
	return errors.Is(err, apperr.ErrAlreadyCompleted)
}

func requireID(op, name, id string) error {
	if id == "" {
		return apperr.New(op, apperr.ErrInvalidInput, name+" is required")
	}
	return nil
}
