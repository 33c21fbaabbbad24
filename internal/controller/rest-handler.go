package controller

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cinewatch/server/internal/service/room"
	"github.com/cinewatch/server/pkg/rest"
)

type response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (c controller) writeData(w http.ResponseWriter, status int, message string, data any) {
	rest.WriteJSON(w, status, response{Success: true, Message: message, Data: data})
}

func (c controller) writeError(w http.ResponseWriter, status int, message string) {
	rest.WriteJSON(w, status, response{Success: false, Message: message})
}

func (c controller) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, room.ErrRoomNotFound):
		c.writeError(w, http.StatusNotFound, "room not found")
	case errors.Is(err, room.ErrRoomFull):
		c.writeError(w, http.StatusBadRequest, "room is full")
	case errors.Is(err, room.ErrInvalidInput):
		c.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, room.ErrPermissionDenied):
		c.writeError(w, http.StatusForbidden, "only host can close the room")
	default:
		c.logger.ErrorContext(r.Context(), "request failed", "error", err)
		c.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// maxParticipants is clamped into the room capacity bounds by the service,
// not validated here.
type createRoomRequest struct {
	MovieSlug       string `json:"movieSlug" validate:"required"`
	MovieName       string `json:"movieName" validate:"required"`
	MoviePoster     string `json:"moviePoster"`
	MaxParticipants int    `json:"maxParticipants"`
}

func (c controller) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := rest.ReadJSON(r, &req); err != nil {
		c.logger.DebugContext(r.Context(), "failed to read request body", "error", err)
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if validationErrors, ok := c.validate.Validate(req); !ok {
		c.logger.DebugContext(r.Context(), "validation failed", "errors", validationErrors)
		c.writeError(w, http.StatusBadRequest, validationErrors[0].Message)
		return
	}

	rm, err := c.roomService.CreateRoom(r.Context(), &room.CreateRoomParams{
		Creator:         c.getIdentityFromCtx(r.Context()),
		MovieSlug:       req.MovieSlug,
		MovieName:       req.MovieName,
		MoviePoster:     req.MoviePoster,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	c.writeData(w, http.StatusCreated, "Room created successfully", rm)
}

func (c controller) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := c.roomService.ListRooms(r.Context())
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, "", rooms)
}

func (c controller) getRoom(w http.ResponseWriter, r *http.Request) {
	rm, err := c.roomService.GetRoom(r.Context(), chi.URLParam(r, "room-code"))
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, "", rm)
}

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	joinRoomResponse, err := c.roomService.JoinRoom(r.Context(), &room.JoinRoomParams{
		RoomCode: chi.URLParam(r, "room-code"),
		Joiner:   c.getIdentityFromCtx(r.Context()),
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	message := "Joined room successfully"
	if joinRoomResponse.AlreadyJoined {
		message = "Already in room"
	}

	c.writeData(w, http.StatusOK, message, joinRoomResponse.Room)
}

func (c controller) leaveRoom(w http.ResponseWriter, r *http.Request) {
	leaveRoomResponse, err := c.roomService.LeaveRoom(r.Context(), &room.LeaveRoomParams{
		RoomCode: chi.URLParam(r, "room-code"),
		Leaver:   c.getIdentityFromCtx(r.Context()),
	})
	if err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	message := "Left room successfully"
	if leaveRoomResponse.IsRoomClosed {
		message = "Room closed"
	}

	c.writeData(w, http.StatusOK, message, nil)
}

func (c controller) closeRoom(w http.ResponseWriter, r *http.Request) {
	if err := c.roomService.CloseRoom(r.Context(), &room.CloseRoomParams{
		RoomCode: chi.URLParam(r, "room-code"),
		Closer:   c.getIdentityFromCtx(r.Context()),
	}); err != nil {
		c.writeServiceError(w, r, err)
		return
	}

	c.writeData(w, http.StatusOK, "Room closed successfully", nil)
}
