package services

import (
	"context"
	"errors"
	"strings"

	"reclaimAPI/internal/apperr"
	"reclaimAPI/internal/docstore"
	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/metrics"
	"reclaimAPI/internal/roomsecret"
	"reclaimAPI/internal/throttle"
	"reclaimAPI/internal/types/room"
)

// RoomService gates access to secret-protected chat rooms.
type RoomService struct {
	store   docstore.Store
	limiter throttle.Limiter
	log     *logger.Logger
}

func NewRoomService(store docstore.Store, limiter throttle.Limiter, log *logger.Logger) *RoomService {
	return &RoomService{
		store:   store,
		limiter: limiter,
		log:     log,
	}
}

// ListRooms returns every room without its secret material.
func (s *RoomService) ListRooms(ctx context.Context) ([]room.Room, error) {
	const op = "rooms.ListRooms"
	snaps, err := s.store.Query(ctx, room.Collection)
	if err != nil {
		return nil, storeErr(op, err)
	}
	rooms := make([]room.Room, 0, len(snaps))
	for _, snap := range snaps {
		var rec room.Record
		if err := snap.DataTo(&rec); err != nil {
			return nil, storeErr(op, err)
		}
		rooms = append(rooms, room.Room{ID: snap.ID(), Name: rec.Name, Description: rec.Description})
	}
	return rooms, nil
}

// EnterRoom checks key against the room's stored secret. A wrong key is a
// normal false result; only throttling, unknown rooms and store failures are
// errors. Attempts are counted per caller and room before the room is looked
// up, so probing unknown ids costs the same budget.
func (s *RoomService) EnterRoom(ctx context.Context, callerID, roomID, key string) (bool, error) {
	const op = "rooms.EnterRoom"
	if err := requireID(op, "callerId", callerID); err != nil {
		return false, err
	}
	if roomID == "" {
		return false, apperr.New(op, apperr.ErrUnknownRoom, "room id is required")
	}

	allowed, err := s.limiter.Allow(ctx, callerID+":"+roomID)
	if err != nil {
		metrics.RoomEntryAttempts.WithLabelValues("error").Inc()
		s.log.Error("room throttle unavailable", "roomId", roomID, "error", err)
		if errors.Is(err, context.Canceled) {
			return false, err
		}
		return false, apperr.Unavailable(op, err)
	}
	if !allowed {
		metrics.RoomEntryAttempts.WithLabelValues("throttled").Inc()
		s.log.Warn("room entry throttled", "callerId", callerID, "roomId", roomID)
		return false, apperr.New(op, apperr.ErrTooManyAttempts, "too many attempts, try again later")
	}

	snap, err := s.store.Get(ctx, room.Collection, roomID)
	if err != nil {
		if docstore.IsNotFound(err) {
			metrics.RoomEntryAttempts.WithLabelValues("unknown").Inc()
			return false, apperr.New(op, apperr.ErrUnknownRoom, "room not found")
		}
		metrics.RoomEntryAttempts.WithLabelValues("error").Inc()
		return false, storeErr(op, err)
	}
	var rec room.Record
	if err := snap.DataTo(&rec); err != nil {
		metrics.RoomEntryAttempts.WithLabelValues("error").Inc()
		return false, storeErr(op, err)
	}

	if !roomsecret.Verify(key, rec.SecretHash, rec.SecretSalt) {
		metrics.RoomEntryAttempts.WithLabelValues("denied").Inc()
		s.log.Info("room entry denied", "callerId", callerID, "roomId", roomID)
		return false, nil
	}

	metrics.RoomEntryAttempts.WithLabelValues("granted").Inc()
	s.log.Info("room entry granted", "callerId", callerID, "roomId", roomID)
	return true, nil
}

// ProvisionRoom creates or replaces a room, storing only a hash of secret.
func (s *RoomService) ProvisionRoom(ctx context.Context, roomID, name, description, secret string) (room.Room, error) {
	const op = "rooms.ProvisionRoom"
	if strings.TrimSpace(roomID) == "" || strings.Contains(roomID, "/") {
		return room.Room{}, apperr.New(op, apperr.ErrInvalidInput, "room id must be non-empty and contain no '/'")
	}
	if name == "" {
		name = roomID
	}

	hash, salt, err := roomsecret.Hash(secret)
	if err != nil {
		if errors.Is(err, roomsecret.ErrEmptySecret) {
			return room.Room{}, apperr.Wrap(op, apperr.ErrInvalidInput, "secret is required", err)
		}
		return room.Room{}, err
	}

	rec := room.Record{Name: name, Description: description, SecretHash: hash, SecretSalt: salt}
	if err := s.store.Set(ctx, room.Collection, roomID, rec); err != nil {
		return room.Room{}, storeErr(op, err)
	}
	s.log.Info("room provisioned", "roomId", roomID)
	return room.Room{ID: roomID, Name: name, Description: description}, nil
}
