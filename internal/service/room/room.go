package room

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cinewatch/server/internal/domain"
	"github.com/cinewatch/server/internal/identity"
	"github.com/cinewatch/server/internal/repository/room"
)

func normalizeCode(roomCode string) string {
	return strings.ToUpper(roomCode)
}

func clampCapacity(capacity, fallback int) int {
	if capacity == 0 {
		return fallback
	}
	if capacity < minRoomCapacity {
		return minRoomCapacity
	}
	if capacity > maxRoomCapacity {
		return maxRoomCapacity
	}

	return capacity
}

type CreateRoomParams struct {
	Creator         identity.Identity
	MovieSlug       string
	MovieName       string
	MoviePoster     string
	MaxParticipants int
}

func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) (domain.WatchRoom, error) {
	if params.MovieSlug == "" || params.MovieName == "" {
		return domain.WatchRoom{}, fmt.Errorf("%w: movie slug and name are required", ErrInvalidInput)
	}

	roomId := uuid.NewString()

	roomCode, err := s.allocateCode(ctx, roomId)
	if err != nil {
		return domain.WatchRoom{}, err
	}

	if err := s.roomRepo.CreateRoom(ctx, &room.CreateRoomParams{
		RoomId:          roomId,
		RoomCode:        roomCode,
		MovieSlug:       params.MovieSlug,
		MovieName:       params.MovieName,
		MoviePoster:     params.MoviePoster,
		Host:            params.Creator.Id,
		HostName:        params.Creator.Name(),
		HostAvatar:      params.Creator.AvatarURL,
		MaxParticipants: clampCapacity(params.MaxParticipants, s.defaultCapacity),
		CreatedAt:       time.Now().Unix(),
	}); err != nil {
		if releaseErr := s.roomRepo.ReleaseCode(ctx, roomCode); releaseErr != nil {
			s.logger.WarnContext(ctx, "failed to release room code", "room_code", roomCode, "error", releaseErr)
		}

		return domain.WatchRoom{}, fmt.Errorf("failed to create room: %w", err)
	}

	s.logger.InfoContext(ctx, "room created", "room_code", roomCode, "host", params.Creator.Id)

	return s.getDomainRoom(ctx, roomId)
}

// ListRooms returns all active rooms, newest first.
func (s *service) ListRooms(ctx context.Context) ([]domain.WatchRoom, error) {
	roomIds, err := s.roomRepo.GetActiveRoomIds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}

	rooms := make([]domain.WatchRoom, 0, len(roomIds))
	for _, roomId := range roomIds {
		rm, err := s.getDomainRoom(ctx, roomId)
		if err != nil {
			// closed concurrently with the listing
			if errors.Is(err, room.ErrRoomNotFound) {
				continue
			}

			return nil, err
		}

		rooms = append(rooms, rm)
	}

	return rooms, nil
}

func (s *service) GetRoom(ctx context.Context, roomCode string) (domain.WatchRoom, error) {
	roomId, err := s.roomRepo.GetRoomId(ctx, normalizeCode(roomCode))
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return domain.WatchRoom{}, ErrRoomNotFound
		}

		return domain.WatchRoom{}, fmt.Errorf("failed to get room: %w", err)
	}

	return s.getDomainRoom(ctx, roomId)
}

type JoinRoomParams struct {
	RoomCode string
	Joiner   identity.Identity
}

type JoinRoomResponse struct {
	Room domain.WatchRoom
	// AlreadyJoined reports the idempotent case: the identity was a
	// participant before this call and the room is returned unchanged.
	AlreadyJoined bool
}

func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	roomCode := normalizeCode(params.RoomCode)
	roomId, err := s.roomRepo.GetRoomId(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}

		return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
	}

	added, err := s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
		RoomId:   roomId,
		UserId:   params.Joiner.Id,
		Name:     params.Joiner.Name(),
		Avatar:   params.Joiner.AvatarURL,
		JoinedAt: time.Now().Unix(),
	})
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomFull):
			return JoinRoomResponse{}, ErrRoomFull
		case errors.Is(err, room.ErrRoomNotFound):
			return JoinRoomResponse{}, ErrRoomNotFound
		default:
			return JoinRoomResponse{}, fmt.Errorf("failed to join room: %w", err)
		}
	}

	if added {
		s.logger.InfoContext(ctx, "participant joined", "room_code", roomCode, "user_id", params.Joiner.Id)
	}

	rm, err := s.getDomainRoom(ctx, roomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	return JoinRoomResponse{Room: rm, AlreadyJoined: !added}, nil
}

type LeaveRoomParams struct {
	RoomCode string
	Leaver   identity.Identity
}

type LeaveRoomResponse struct {
	// IsRoomClosed reports that the leaver was the host, which terminates the
	// room instead of removing the host's participant entry.
	IsRoomClosed bool
}

func (s *service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	roomCode := normalizeCode(params.RoomCode)
	roomId, err := s.roomRepo.GetRoomId(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return LeaveRoomResponse{}, ErrRoomNotFound
		}

		return LeaveRoomResponse{}, fmt.Errorf("failed to leave room: %w", err)
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return LeaveRoomResponse{}, fmt.Errorf("failed to leave room: %w", err)
	}

	if rm.Host == params.Leaver.Id {
		if err := s.roomRepo.CloseRoom(ctx, roomId, time.Now().Unix()); err != nil {
			return LeaveRoomResponse{}, fmt.Errorf("failed to close room: %w", err)
		}

		s.logger.InfoContext(ctx, "room closed by host leaving", "room_code", roomCode)
		return LeaveRoomResponse{IsRoomClosed: true}, nil
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		RoomId: roomId,
		UserId: params.Leaver.Id,
	}); err != nil {
		return LeaveRoomResponse{}, fmt.Errorf("failed to leave room: %w", err)
	}

	s.logger.InfoContext(ctx, "participant left", "room_code", roomCode, "user_id", params.Leaver.Id)
	return LeaveRoomResponse{}, nil
}

type CloseRoomParams struct {
	RoomCode string
	Closer   identity.Identity
}

func (s *service) CloseRoom(ctx context.Context, params *CloseRoomParams) error {
	roomCode := normalizeCode(params.RoomCode)
	roomId, err := s.roomRepo.GetRoomId(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return ErrRoomNotFound
		}

		return fmt.Errorf("failed to close room: %w", err)
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to close room: %w", err)
	}

	if rm.Host != params.Closer.Id {
		return fmt.Errorf("%w: only host can close the room", ErrPermissionDenied)
	}

	if err := s.roomRepo.CloseRoom(ctx, roomId, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to close room: %w", err)
	}

	s.logger.InfoContext(ctx, "room closed", "room_code", roomCode)
	return nil
}
