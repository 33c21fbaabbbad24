package redis

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc     *redis.Client
	logger *slog.Logger

	addParticipantScript string
	closeRoomScript      string
	updatePlaybackScript string
}

func NewRepo(rc *redis.Client, logger *slog.Logger) *repo {
	ctx := context.Background()

	return &repo{
		rc:     rc,
		logger: logger,
		// append-if-capacity-allows, idempotent by user id
		addParticipantScript: rc.ScriptLoad(ctx, `
			if redis.call('HGET', KEYS[1], 'is_active') ~= '1' then
				return 'closed'
			end
			if redis.call('ZSCORE', KEYS[2], ARGV[1]) then
				return 'exists'
			end
			local max = tonumber(redis.call('HGET', KEYS[1], 'max_participants'))
			if redis.call('ZCARD', KEYS[2]) >= max then
				return 'full'
			end
			local top = redis.call('ZREVRANGE', KEYS[2], 0, 0, 'WITHSCORES')
			local score = 1
			if #top > 0 then
				score = tonumber(top[2]) + 1
			end
			redis.call('ZADD', KEYS[2], score, ARGV[1])
			redis.call('HSET', KEYS[3], 'name', ARGV[2], 'avatar', ARGV[3], 'joined_at', ARGV[4])
			return 'added'
		`).Val(),
		closeRoomScript: rc.ScriptLoad(ctx, `
			if redis.call('HGET', KEYS[1], 'is_active') ~= '1' then
				return 0
			end
			redis.call('HSET', KEYS[1], 'is_active', '0', 'updated_at', ARGV[2])
			redis.call('ZREM', KEYS[2], ARGV[1])
			redis.call('DEL', KEYS[3])
			return 1
		`).Val(),
		updatePlaybackScript: rc.ScriptLoad(ctx, `
			if redis.call('HGET', KEYS[1], 'is_active') ~= '1' then
				return 0
			end
			redis.call('HSET', KEYS[1], unpack(ARGV))
			return 1
		`).Val(),
	}
}

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getParticipantListKey(roomId string) string {
	return "room:" + roomId + ":participants"
}

func (r repo) getParticipantKey(roomId, userId string) string {
	return "room:" + roomId + ":participant:" + userId
}

func (r repo) getCodeKey(roomCode string) string {
	return "roomcode:" + roomCode
}

func (r repo) getActiveRoomsKey() string {
	return "rooms:active"
}

func (r repo) getRoomSeqKey() string {
	return "rooms:seq"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}
