package room

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cinewatch/server/internal/domain"
	"github.com/cinewatch/server/internal/identity"
	"github.com/cinewatch/server/internal/repository/connection/inmemory"
	roomRedis "github.com/cinewatch/server/internal/repository/room/redis"
)

type fakeSender struct {
	mu     sync.Mutex
	events map[*websocket.Conn][]*Event
}

func newFakeSender() *fakeSender {
	return &fakeSender{events: make(map[*websocket.Conn][]*Event)}
}

func (f *fakeSender) Send(conn *websocket.Conn, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.events[conn] = append(f.events[conn], v.(*Event))
	return nil
}

func (f *fakeSender) Forget(conn *websocket.Conn) {}

func (f *fakeSender) eventsFor(conn *websocket.Conn) []*Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*Event(nil), f.events[conn]...)
}

func (f *fakeSender) lastEventFor(t *testing.T, conn *websocket.Conn) *Event {
	t.Helper()
	events := f.eventsFor(conn)
	require.NotEmpty(t, events)

	return events[len(events)-1]
}

// scriptedGenerator replays a fixed code sequence, sticking to the last entry
// once exhausted.
type scriptedGenerator struct {
	codes []string
	calls int
}

func (g *scriptedGenerator) GenerateRandomString(length int) string {
	i := g.calls
	if i >= len(g.codes) {
		i = len(g.codes) - 1
	}
	g.calls++

	return g.codes[i]
}

func newTestServiceWithConfig(t *testing.T, cfg *Config) (*service, *fakeSender) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sender := newFakeSender()
	svc := NewService(roomRedis.NewRepo(rc, logger), inmemory.NewRepo(logger), sender, cfg, logger)

	return svc, sender
}

func newTestService(t *testing.T, defaultCapacity int) (*service, *fakeSender) {
	t.Helper()
	return newTestServiceWithConfig(t, &Config{DefaultCapacity: defaultCapacity})
}

func ident(id, name string) identity.Identity {
	return identity.Identity{Id: id, DisplayName: name}
}

func TestCreateRoom(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:     ident("u1", "Ann"),
		MovieSlug:   "dune-part-two",
		MovieName:   "Dune: Part Two",
		MoviePoster: "poster.jpg",
	})
	require.NoError(t, err)

	assert.Regexp(t, "^[A-Z0-9]{6}$", rm.RoomCode)
	assert.Equal(t, "dune-part-two", rm.MovieSlug)
	assert.Equal(t, "Dune: Part Two", rm.MovieName)
	assert.Equal(t, "poster.jpg", rm.MoviePoster)
	assert.Equal(t, "u1", rm.Host)
	assert.Equal(t, "Ann", rm.HostName)
	assert.Equal(t, 30, rm.MaxParticipants)
	assert.True(t, rm.IsActive)
	require.Len(t, rm.Participants, 1, "host must be the first participant")
	assert.Equal(t, "u1", rm.Participants[0].UserId)
	assert.Equal(t, "Ann", rm.Participants[0].Name)
	assert.Zero(t, rm.CurrentTime)
	assert.False(t, rm.IsPlaying)
	assert.Zero(t, rm.CurrentServer)
	assert.Zero(t, rm.CurrentEpisode)
}

func TestCreateRoomInvalidInput(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, &CreateRoomParams{Creator: ident("u1", "Ann"), MovieName: "No Slug"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreateRoom(ctx, &CreateRoomParams{Creator: ident("u1", "Ann"), MovieSlug: "no-name"})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRoomCapacityClamped(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	tests := []struct {
		requested int
		want      int
	}{
		{requested: 0, want: 30},
		{requested: 1, want: 2},
		{requested: 100, want: 50},
		{requested: 10, want: 10},
	}
	for _, tt := range tests {
		rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
			Creator:         ident("u1", "Ann"),
			MovieSlug:       "some-movie",
			MovieName:       "Some Movie",
			MaxParticipants: tt.requested,
		})
		require.NoError(t, err)
		assert.Equal(t, tt.want, rm.MaxParticipants, "requested %d", tt.requested)
	}
}

func TestRoomCodesUnique(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	codes := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
			Creator:   ident("u1", "Ann"),
			MovieSlug: "some-movie",
			MovieName: "Some Movie",
		})
		require.NoError(t, err)
		codes[rm.RoomCode] = struct{}{}
	}

	assert.Len(t, codes, 100)
}

func TestAllocateCodeRetriesCollisions(t *testing.T) {
	gen := &scriptedGenerator{codes: []string{"AAAAAA", "AAAAAA", "BBBBBB"}}
	svc, _ := newTestServiceWithConfig(t, &Config{DefaultCapacity: 30, Generator: gen})
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)
	assert.Equal(t, "AAAAAA", rm.RoomCode)

	// the second room collides once and moves on to the next candidate
	rm, err = svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u2", "Bob"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)
	assert.Equal(t, "BBBBBB", rm.RoomCode)
	assert.Equal(t, 3, gen.calls)
}

func TestAllocateCodeExhausted(t *testing.T) {
	gen := &scriptedGenerator{codes: []string{"CCCCCC"}}
	svc, _ := newTestServiceWithConfig(t, &Config{DefaultCapacity: 30, Generator: gen})
	ctx := context.Background()

	_, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)

	callsBefore := gen.calls
	_, err = svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u2", "Bob"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	assert.ErrorIs(t, err, ErrAllocationExhausted)
	assert.Equal(t, maxAllocateAttempts, gen.calls-callsBefore, "the collision loop is bounded")
}

func TestJoinRoom(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)

	joinResp, err := svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u2", "Bob")})
	require.NoError(t, err)
	assert.False(t, joinResp.AlreadyJoined)
	assert.Len(t, joinResp.Room.Participants, 2)

	// idempotent
	joinResp, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u2", "Bob")})
	require.NoError(t, err)
	assert.True(t, joinResp.AlreadyJoined)
	assert.Len(t, joinResp.Room.Participants, 2)

	// the host is already a participant
	joinResp, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u1", "Ann")})
	require.NoError(t, err)
	assert.True(t, joinResp.AlreadyJoined)

	// codes are case-insensitive on input
	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: strings.ToLower(rm.RoomCode), Joiner: ident("u3", "Cay")})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: "NOSUCH", Joiner: ident("u4", "Dee")})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestJoinRoomFull(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:         ident("u1", "Ann"),
		MovieSlug:       "some-movie",
		MovieName:       "Some Movie",
		MaxParticipants: 2,
	})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u2", "Bob")})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u3", "Cay")})
	assert.ErrorIs(t, err, ErrRoomFull)

	// re-join of an existing participant succeeds even at capacity
	joinResp, err := svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u2", "Bob")})
	require.NoError(t, err)
	assert.True(t, joinResp.AlreadyJoined)
}

func TestLeaveRoom(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u2", "Bob")})
	require.NoError(t, err)

	leaveResp, err := svc.LeaveRoom(ctx, &LeaveRoomParams{RoomCode: rm.RoomCode, Leaver: ident("u2", "Bob")})
	require.NoError(t, err)
	assert.False(t, leaveResp.IsRoomClosed)

	got, err := svc.GetRoom(ctx, rm.RoomCode)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)

	// host departure terminates the room
	leaveResp, err = svc.LeaveRoom(ctx, &LeaveRoomParams{RoomCode: rm.RoomCode, Leaver: ident("u1", "Ann")})
	require.NoError(t, err)
	assert.True(t, leaveResp.IsRoomClosed)

	_, err = svc.GetRoom(ctx, rm.RoomCode)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u3", "Cay")})
	assert.ErrorIs(t, err, ErrRoomNotFound)

	rooms, err := svc.ListRooms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rooms)
}

func TestCloseRoom(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)

	_, err = svc.JoinRoom(ctx, &JoinRoomParams{RoomCode: rm.RoomCode, Joiner: ident("u2", "Bob")})
	require.NoError(t, err)

	err = svc.CloseRoom(ctx, &CloseRoomParams{RoomCode: rm.RoomCode, Closer: ident("u2", "Bob")})
	assert.ErrorIs(t, err, ErrPermissionDenied)

	err = svc.CloseRoom(ctx, &CloseRoomParams{RoomCode: rm.RoomCode, Closer: ident("u1", "Ann")})
	require.NoError(t, err)

	// the code mapping is gone with the room
	err = svc.CloseRoom(ctx, &CloseRoomParams{RoomCode: rm.RoomCode, Closer: ident("u1", "Ann")})
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestListRoomsNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	// newest-first must hold even for rooms created within the same second
	want := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
			Creator:   ident("u1", "Ann"),
			MovieSlug: "some-movie",
			MovieName: "Some Movie",
		})
		require.NoError(t, err)
		want = append([]string{rm.RoomCode}, want...)
	}

	rooms, err := svc.ListRooms(ctx)
	require.NoError(t, err)

	got := make([]string, 0, len(rooms))
	for _, rm := range rooms {
		got = append(got, rm.RoomCode)
	}
	assert.Equal(t, want, got)
}

func TestRealtimeSyncFlow(t *testing.T) {
	svc, sender := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)
	code := rm.RoomCode

	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	require.NoError(t, svc.HandleJoinRoom(ctx, conn1, &JoinRoomEventParams{RoomCode: code, UserId: "u1", UserName: "Ann"}))
	events := sender.eventsFor(conn1)
	require.Len(t, events, 1, "joiner receives the authoritative state")
	assert.Equal(t, EventSyncState, events[0].Type)

	require.NoError(t, svc.HandleJoinRoom(ctx, conn2, &JoinRoomEventParams{RoomCode: code, UserId: "u2", UserName: "Bob"}))
	event := sender.lastEventFor(t, conn1)
	require.Equal(t, EventUserJoined, event.Type)
	joined := event.Payload.(UserJoinedPayload)
	assert.Equal(t, "u2", joined.UserId)
	assert.Equal(t, "Bob", joined.UserName)
	assert.Equal(t, 2, joined.ParticipantCount)
	assert.Equal(t, EventSyncState, sender.lastEventFor(t, conn2).Type, "join announcement excludes the joiner")

	// play reaches the peer, not the sender, and lands durably
	require.NoError(t, svc.HandleVideoPlay(ctx, conn2, &PlaybackEventParams{RoomCode: code, CurrentTime: 42.5, UserId: "u2"}))
	event = sender.lastEventFor(t, conn1)
	require.Equal(t, EventVideoPlay, event.Type)
	playback := event.Payload.(PlaybackEventPayload)
	assert.Equal(t, 42.5, playback.CurrentTime)
	assert.Equal(t, "u2", playback.TriggeredBy)
	require.Len(t, sender.eventsFor(conn2), 1)

	got, err := svc.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.True(t, got.IsPlaying)
	assert.Equal(t, 42.5, got.CurrentTime)

	require.NoError(t, svc.HandleVideoPause(ctx, conn1, &PlaybackEventParams{RoomCode: code, CurrentTime: 50, UserId: "u1"}))
	assert.Equal(t, EventVideoPause, sender.lastEventFor(t, conn2).Type)

	got, err = svc.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.False(t, got.IsPlaying)
	assert.Equal(t, 50.0, got.CurrentTime)

	require.NoError(t, svc.HandleVideoSeek(ctx, conn1, &PlaybackEventParams{RoomCode: code, CurrentTime: 99.5, UserId: "u1"}))
	assert.Equal(t, EventVideoSeek, sender.lastEventFor(t, conn2).Type)

	got, err = svc.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 99.5, got.CurrentTime)
	assert.False(t, got.IsPlaying, "seek leaves the play state alone")

	// episode change resets playback to a paused zero position
	require.NoError(t, svc.HandleEpisodeChange(ctx, conn1, &EpisodeChangeParams{RoomCode: code, ServerIndex: 1, EpisodeIndex: 3, UserId: "u1"}))
	event = sender.lastEventFor(t, conn2)
	require.Equal(t, EventEpisodeChange, event.Type)
	episode := event.Payload.(EpisodeChangePayload)
	assert.Equal(t, 1, episode.ServerIndex)
	assert.Equal(t, 3, episode.EpisodeIndex)

	got, err = svc.GetRoom(ctx, code)
	require.NoError(t, err)
	assert.Equal(t, 1, got.CurrentServer)
	assert.Equal(t, 3, got.CurrentEpisode)
	assert.Zero(t, got.CurrentTime)
	assert.False(t, got.IsPlaying)

	// sync request replays the state to the requester only
	before := len(sender.eventsFor(conn1))
	require.NoError(t, svc.HandleSyncRequest(ctx, conn2, code))
	event = sender.lastEventFor(t, conn2)
	require.Equal(t, EventSyncState, event.Type)
	state := event.Payload.(domain.PlaybackState)
	assert.Equal(t, domain.PlaybackState{CurrentServer: 1, CurrentEpisode: 3}, state)
	assert.Len(t, sender.eventsFor(conn1), before)
}

func TestHandleCloseRoom(t *testing.T) {
	svc, sender := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)
	code := rm.RoomCode

	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	require.NoError(t, svc.HandleJoinRoom(ctx, conn1, &JoinRoomEventParams{RoomCode: code, UserId: "u1", UserName: "Ann"}))
	require.NoError(t, svc.HandleJoinRoom(ctx, conn2, &JoinRoomEventParams{RoomCode: code, UserId: "u2", UserName: "Bob"}))

	require.NoError(t, svc.HandleCloseRoom(ctx, conn1, code))

	// closure reaches everyone, the sender included
	for _, conn := range []*websocket.Conn{conn1, conn2} {
		event := sender.lastEventFor(t, conn)
		require.Equal(t, EventRoomClosed, event.Type)
		assert.Equal(t, "Host has closed the room", event.Payload.(RoomClosedPayload).Message)
	}

	// nothing is bound to the room anymore
	count1 := len(sender.eventsFor(conn1))
	require.NoError(t, svc.HandleVideoPlay(ctx, conn2, &PlaybackEventParams{RoomCode: code, CurrentTime: 1, UserId: "u2"}))
	assert.Len(t, sender.eventsFor(conn1), count1)
}

func TestRoomLockStableAcrossClose(t *testing.T) {
	svc, _ := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)

	lock := svc.roomLock(rm.RoomCode)
	require.NoError(t, svc.HandleCloseRoom(ctx, nil, rm.RoomCode))

	// a late event for the closed code must serialize on the same mutex
	assert.Same(t, lock, svc.roomLock(rm.RoomCode))
}

func TestHandleLeaveRoomAndDisconnect(t *testing.T) {
	svc, sender := newTestService(t, 30)
	ctx := context.Background()

	rm, err := svc.CreateRoom(ctx, &CreateRoomParams{
		Creator:   ident("u1", "Ann"),
		MovieSlug: "some-movie",
		MovieName: "Some Movie",
	})
	require.NoError(t, err)
	code := rm.RoomCode

	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	conn3 := &websocket.Conn{}
	require.NoError(t, svc.HandleJoinRoom(ctx, conn1, &JoinRoomEventParams{RoomCode: code, UserId: "u1", UserName: "Ann"}))
	require.NoError(t, svc.HandleJoinRoom(ctx, conn2, &JoinRoomEventParams{RoomCode: code, UserId: "u2", UserName: "Bob"}))
	require.NoError(t, svc.HandleJoinRoom(ctx, conn3, &JoinRoomEventParams{RoomCode: code, UserId: "u3", UserName: "Cay"}))

	require.NoError(t, svc.HandleLeaveRoom(ctx, conn3, code))
	event := sender.lastEventFor(t, conn1)
	require.Equal(t, EventUserLeft, event.Type)
	assert.Equal(t, 2, event.Payload.(UserLeftPayload).ParticipantCount)

	svc.HandleDisconnect(ctx, conn2)
	event = sender.lastEventFor(t, conn1)
	require.Equal(t, EventUserLeft, event.Type)
	assert.Equal(t, 1, event.Payload.(UserLeftPayload).ParticipantCount)

	// a connection that never joined disconnects quietly
	svc.HandleDisconnect(ctx, &websocket.Conn{})
}

func TestHandleJoinUnknownRoom(t *testing.T) {
	svc, sender := newTestService(t, 30)
	ctx := context.Background()

	conn := &websocket.Conn{}
	require.NoError(t, svc.HandleJoinRoom(ctx, conn, &JoinRoomEventParams{RoomCode: "NOSUCH", UserId: "u1", UserName: "Ann"}))
	assert.Empty(t, sender.eventsFor(conn), "stale joins neither error nor receive state")
}
