package room

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cinewatch/server/internal/domain"
	"github.com/cinewatch/server/internal/repository/room"
)

// Every handler below serializes on the room's mutex: the durable merge (when
// any) happens before fan-out, and deliveries for one room reach each peer in
// processing order. The merge is best-effort; its failure never gates the
// broadcast.

type UpdateSyncStateParams struct {
	RoomCode       string
	CurrentTime    *float64
	IsPlaying      *bool
	CurrentServer  *int
	CurrentEpisode *int
}

// UpdateSyncState merges the provided playback fields into the active room
// matching the code. Storage failures are logged and swallowed.
func (s *service) UpdateSyncState(ctx context.Context, params *UpdateSyncStateParams) {
	roomCode := normalizeCode(params.RoomCode)
	roomId, err := s.roomRepo.GetRoomId(ctx, roomCode)
	if err != nil {
		if !errors.Is(err, room.ErrRoomNotFound) {
			s.logger.WarnContext(ctx, "failed to resolve room for sync update", "room_code", roomCode, "error", err)
		}
		return
	}

	if err := s.roomRepo.UpdatePlaybackState(ctx, &room.UpdatePlaybackStateParams{
		RoomId:         roomId,
		CurrentTime:    params.CurrentTime,
		IsPlaying:      params.IsPlaying,
		CurrentServer:  params.CurrentServer,
		CurrentEpisode: params.CurrentEpisode,
		UpdatedAt:      time.Now().Unix(),
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to update sync state", "room_code", roomCode, "error", err)
	}
}

type JoinRoomEventParams struct {
	RoomCode string
	UserId   string
	UserName string
}

// HandleJoinRoom binds the connection to the room, replays the authoritative
// playback state to the joiner and announces the join to everyone else. An
// unknown or closed room still binds the connection but emits nothing, so a
// stale client neither errors nor receives state.
func (s *service) HandleJoinRoom(ctx context.Context, conn *websocket.Conn, params *JoinRoomEventParams) error {
	roomCode := normalizeCode(params.RoomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	s.tracker.Bind(conn, roomCode)

	roomId, err := s.roomRepo.GetRoomId(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to join room: %w", err)
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	s.sendTo(ctx, conn, NewSyncStateEvent(domain.PlaybackState{
		CurrentTime:    rm.CurrentTime,
		IsPlaying:      rm.IsPlaying,
		CurrentServer:  rm.CurrentServer,
		CurrentEpisode: rm.CurrentEpisode,
	}))

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventUserJoined,
		Payload: UserJoinedPayload{
			UserId:           params.UserId,
			UserName:         params.UserName,
			ParticipantCount: len(s.tracker.MembersOf(roomCode)),
		},
	})

	s.logger.InfoContext(ctx, "connection joined room", "room_code", roomCode, "user_id", params.UserId)
	return nil
}

func (s *service) HandleLeaveRoom(ctx context.Context, conn *websocket.Conn, roomCode string) error {
	roomCode = normalizeCode(roomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	s.tracker.Unbind(conn)

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventUserLeft,
		Payload: UserLeftPayload{
			ParticipantCount: len(s.tracker.MembersOf(roomCode)),
		},
	})

	s.logger.InfoContext(ctx, "connection left room", "room_code", roomCode)
	return nil
}

type PlaybackEventParams struct {
	RoomCode    string
	CurrentTime float64
	UserId      string
}

func (s *service) HandleVideoPlay(ctx context.Context, conn *websocket.Conn, params *PlaybackEventParams) error {
	roomCode := normalizeCode(params.RoomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	isPlaying := true
	s.UpdateSyncState(ctx, &UpdateSyncStateParams{
		RoomCode:    roomCode,
		CurrentTime: &params.CurrentTime,
		IsPlaying:   &isPlaying,
	})

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventVideoPlay,
		Payload: PlaybackEventPayload{
			CurrentTime: params.CurrentTime,
			TriggeredBy: params.UserId,
		},
	})

	return nil
}

func (s *service) HandleVideoPause(ctx context.Context, conn *websocket.Conn, params *PlaybackEventParams) error {
	roomCode := normalizeCode(params.RoomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	isPlaying := false
	s.UpdateSyncState(ctx, &UpdateSyncStateParams{
		RoomCode:    roomCode,
		CurrentTime: &params.CurrentTime,
		IsPlaying:   &isPlaying,
	})

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventVideoPause,
		Payload: PlaybackEventPayload{
			CurrentTime: params.CurrentTime,
			TriggeredBy: params.UserId,
		},
	})

	return nil
}

func (s *service) HandleVideoSeek(ctx context.Context, conn *websocket.Conn, params *PlaybackEventParams) error {
	roomCode := normalizeCode(params.RoomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	s.UpdateSyncState(ctx, &UpdateSyncStateParams{
		RoomCode:    roomCode,
		CurrentTime: &params.CurrentTime,
	})

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventVideoSeek,
		Payload: PlaybackEventPayload{
			CurrentTime: params.CurrentTime,
			TriggeredBy: params.UserId,
		},
	})

	return nil
}

type EpisodeChangeParams struct {
	RoomCode     string
	ServerIndex  int
	EpisodeIndex int
	UserId       string
}

// HandleEpisodeChange switches the room to another server/episode and resets
// playback to a paused zero position.
func (s *service) HandleEpisodeChange(ctx context.Context, conn *websocket.Conn, params *EpisodeChangeParams) error {
	roomCode := normalizeCode(params.RoomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	currentTime := 0.0
	isPlaying := false
	s.UpdateSyncState(ctx, &UpdateSyncStateParams{
		RoomCode:       roomCode,
		CurrentTime:    &currentTime,
		IsPlaying:      &isPlaying,
		CurrentServer:  &params.ServerIndex,
		CurrentEpisode: &params.EpisodeIndex,
	})

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventEpisodeChange,
		Payload: EpisodeChangePayload{
			ServerIndex:  params.ServerIndex,
			EpisodeIndex: params.EpisodeIndex,
			TriggeredBy:  params.UserId,
		},
	})

	return nil
}

// HandleSyncRequest replays the persisted playback state to the requester
// only. The persisted value may trail in-flight broadcasts; reconciliation is
// last-write-wins by design.
func (s *service) HandleSyncRequest(ctx context.Context, conn *websocket.Conn, roomCode string) error {
	roomCode = normalizeCode(roomCode)

	roomId, err := s.roomRepo.GetRoomId(ctx, roomCode)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to handle sync request: %w", err)
	}

	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to handle sync request: %w", err)
	}

	s.sendTo(ctx, conn, NewSyncStateEvent(domain.PlaybackState{
		CurrentTime:    rm.CurrentTime,
		IsPlaying:      rm.IsPlaying,
		CurrentServer:  rm.CurrentServer,
		CurrentEpisode: rm.CurrentEpisode,
	}))

	return nil
}

// HandleCloseRoom announces the closure to every connection in the room,
// including the sender, and clears the room's live bindings. The durable
// close itself is the lifecycle manager's job (the host's DELETE request).
func (s *service) HandleCloseRoom(ctx context.Context, _ *websocket.Conn, roomCode string) error {
	roomCode = normalizeCode(roomCode)

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	event := Event{
		Type:    EventRoomClosed,
		Payload: RoomClosedPayload{Message: "Host has closed the room"},
	}
	for _, conn := range s.tracker.RemoveRoom(roomCode) {
		if err := s.sender.Send(conn, &event); err != nil {
			s.logger.InfoContext(ctx, "failed to send event", "event_type", event.Type, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "room closed over socket", "room_code", roomCode)
	return nil
}

// HandleDisconnect reactively cleans up after a dropped connection: unbind
// and announce the departure. The durable participant list is left alone so
// the client can reconnect and re-join.
func (s *service) HandleDisconnect(ctx context.Context, conn *websocket.Conn) {
	defer s.sender.Forget(conn)

	roomCode, ok := s.tracker.RoomOf(conn)
	if !ok {
		return
	}

	lock := s.roomLock(roomCode)
	lock.Lock()
	defer lock.Unlock()

	s.tracker.Unbind(conn)

	s.broadcast(ctx, roomCode, conn, &Event{
		Type: EventUserLeft,
		Payload: UserLeftPayload{
			ParticipantCount: len(s.tracker.MembersOf(roomCode)),
		},
	})

	s.logger.InfoContext(ctx, "connection disconnected", "room_code", roomCode)
}
