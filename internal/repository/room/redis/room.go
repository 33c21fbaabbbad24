package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/cinewatch/server/internal/repository/room"
)

// ReserveCode atomically claims roomCode for roomId. It returns false when the
// code is already held by another active room.
func (r repo) ReserveCode(ctx context.Context, roomCode, roomId string) (bool, error) {
	r.logger.DebugContext(ctx, "called", "room_code", roomCode, "room_id", roomId)
	reserved, err := r.rc.SetNX(ctx, r.getCodeKey(roomCode), roomId, 0).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	return reserved, nil
}

func (r repo) ReleaseCode(ctx context.Context, roomCode string) error {
	r.logger.DebugContext(ctx, "called", "room_code", roomCode)
	return r.rc.Del(ctx, r.getCodeKey(roomCode)).Err()
}

// CreateRoom persists a new active room with the host synthesized as the first
// participant. The room code must already be reserved via ReserveCode.
func (r repo) CreateRoom(ctx context.Context, params *room.CreateRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	// defensive: the reservation must point at us
	holder, err := r.rc.Get(ctx, r.getCodeKey(params.RoomCode)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}
	if holder != params.RoomId {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrCodeTaken)
		return room.ErrCodeTaken
	}

	// the active set is scored by a creation sequence, not the timestamp:
	// rooms created within the same second must still list newest-first
	seq, err := r.rc.Incr(ctx, r.getRoomSeqKey()).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	pipe := r.rc.TxPipeline()

	pipe.HSet(ctx, r.getRoomKey(params.RoomId), room.Room{
		RoomCode:        params.RoomCode,
		MovieSlug:       params.MovieSlug,
		MovieName:       params.MovieName,
		MoviePoster:     params.MoviePoster,
		Host:            params.Host,
		HostName:        params.HostName,
		MaxParticipants: params.MaxParticipants,
		IsActive:        true,
		CurrentTime:     0,
		IsPlaying:       false,
		CurrentServer:   0,
		CurrentEpisode:  0,
		CreatedAt:       params.CreatedAt,
		UpdatedAt:       params.CreatedAt,
	})
	pipe.ZAdd(ctx, r.getActiveRoomsKey(), redis.Z{
		Score:  float64(seq),
		Member: params.RoomId,
	})
	pipe.ZAdd(ctx, r.getParticipantListKey(params.RoomId), redis.Z{
		Score:  1,
		Member: params.Host,
	})
	pipe.HSet(ctx, r.getParticipantKey(params.RoomId, params.Host), room.Participant{
		Name:     params.HostName,
		Avatar:   params.HostAvatar,
		JoinedAt: params.CreatedAt,
	})

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetRoomId resolves an active room code to its room id.
func (r repo) GetRoomId(ctx context.Context, roomCode string) (string, error) {
	r.logger.DebugContext(ctx, "called", "room_code", roomCode)
	roomId, err := r.rc.Get(ctx, r.getCodeKey(roomCode)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", room.ErrRoomNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return "", err
	}

	return roomId, nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var rm room.Room
	if err := r.rc.HGetAll(ctx, r.getRoomKey(roomId)).Scan(&rm); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Room{}, err
	}

	if rm.RoomCode == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return room.Room{}, room.ErrRoomNotFound
	}

	return rm, nil
}

// GetActiveRoomIds returns active room ids newest-first.
func (r repo) GetActiveRoomIds(ctx context.Context) ([]string, error) {
	r.logger.DebugContext(ctx, "called")
	roomIds, err := r.rc.ZRevRange(ctx, r.getActiveRoomsKey(), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return roomIds, nil
}

// CloseRoom marks the room inactive, removes it from the active set and frees
// its code. Idempotent: closing a closed room is a no-op. The room hash and
// its participants are retained.
func (r repo) CloseRoom(ctx context.Context, roomId string, updatedAt int64) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)

	roomCode, err := r.rc.HGet(ctx, r.getRoomKey(roomId), "room_code").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return room.ErrRoomNotFound
		}

		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	keys := []string{r.getRoomKey(roomId), r.getActiveRoomsKey(), r.getCodeKey(roomCode)}
	if err := r.rc.EvalSha(ctx, r.closeRoomScript, keys, roomId, updatedAt).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// UpdatePlaybackState merges the provided playback fields into the room if it
// is still active; otherwise it is a no-op.
func (r repo) UpdatePlaybackState(ctx context.Context, params *room.UpdatePlaybackStateParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	args := []interface{}{"updated_at", params.UpdatedAt}
	if params.CurrentTime != nil {
		args = append(args, "current_time", *params.CurrentTime)
	}
	if params.IsPlaying != nil {
		isPlaying := "0"
		if *params.IsPlaying {
			isPlaying = "1"
		}
		args = append(args, "is_playing", isPlaying)
	}
	if params.CurrentServer != nil {
		args = append(args, "current_server", *params.CurrentServer)
	}
	if params.CurrentEpisode != nil {
		args = append(args, "current_episode", *params.CurrentEpisode)
	}

	keys := []string{r.getRoomKey(params.RoomId)}
	if err := r.rc.EvalSha(ctx, r.updatePlaybackScript, keys, args...).Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
