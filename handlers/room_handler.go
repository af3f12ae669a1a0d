package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"reclaimAPI/internal/types/room"
	"reclaimAPI/services"
)

type RoomHandler struct {
	roomService *services.RoomService
}

func NewRoomHandler(roomService *services.RoomService) *RoomHandler {
	return &RoomHandler{
		roomService: roomService,
	}
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rooms, err := h.roomService.ListRooms(ctx)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, rooms)
}

// EnterRoom answers 200 with granted true/false; a wrong key is not an error.
func (h *RoomHandler) EnterRoom(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	callerID, ok := callerFor(w, r)
	if !ok {
		return
	}

	var req room.EnterRoomRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	granted, err := h.roomService.EnterRoom(ctx, callerID, mux.Vars(r)["id"], req.Key)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, room.EnterRoomResponse{Granted: granted})
}
