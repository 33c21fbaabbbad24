package redis

import (
	"context"
	"fmt"

	"github.com/cinewatch/server/internal/repository/room"
)

// AddParticipant appends a participant to an active room. The existence,
// capacity and append run as one script, so the participant count can never
// exceed max_participants under concurrent joins. Returns false without error
// when the user is already a participant.
func (r repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) (bool, error) {
	r.logger.DebugContext(ctx, "called", "params", params)

	keys := []string{
		r.getRoomKey(params.RoomId),
		r.getParticipantListKey(params.RoomId),
		r.getParticipantKey(params.RoomId, params.UserId),
	}
	status, err := r.rc.EvalSha(ctx, r.addParticipantScript, keys,
		params.UserId, params.Name, params.Avatar, params.JoinedAt,
	).Text()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return false, err
	}

	switch status {
	case "added":
		return true, nil
	case "exists":
		return false, nil
	case "full":
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomFull)
		return false, room.ErrRoomFull
	case "closed":
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomNotFound)
		return false, room.ErrRoomNotFound
	default:
		return false, fmt.Errorf("unexpected add participant status %q", status)
	}
}

// RemoveParticipant removes the matching entry; no-op when absent.
func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)

	pipe := r.rc.TxPipeline()
	pipe.ZRem(ctx, r.getParticipantListKey(params.RoomId), params.UserId)
	pipe.Del(ctx, r.getParticipantKey(params.RoomId, params.UserId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetParticipantIds returns user ids in join order.
func (r repo) GetParticipantIds(ctx context.Context, roomId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	userIds, err := r.rc.ZRange(ctx, r.getParticipantListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return userIds, nil
}

func (r repo) GetParticipant(ctx context.Context, params *room.GetParticipantParams) (room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "params", params)
	var participant room.Participant
	if err := r.rc.HGetAll(ctx, r.getParticipantKey(params.RoomId, params.UserId)).Scan(&participant); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	if participant.Name == "" && participant.JoinedAt == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.Participant{}, room.ErrParticipantNotFound
	}

	return participant, nil
}
