package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/cinewatch/server/internal/repository/room"
	"github.com/cinewatch/server/pkg/randstr"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrPermissionDenied    = errors.New("permission denied")
	ErrInvalidInput        = errors.New("invalid input")
	ErrAllocationExhausted = errors.New("room code allocation exhausted")
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	maxAllocateAttempts = 10

	minRoomCapacity = 2
	maxRoomCapacity = 50
)

type iRoomRepo interface {
	// room
	ReserveCode(ctx context.Context, roomCode, roomId string) (bool, error)
	ReleaseCode(ctx context.Context, roomCode string) error
	CreateRoom(context.Context, *room.CreateRoomParams) error
	GetRoomId(ctx context.Context, roomCode string) (string, error)
	GetRoom(ctx context.Context, roomId string) (room.Room, error)
	GetActiveRoomIds(context.Context) ([]string, error)
	CloseRoom(ctx context.Context, roomId string, updatedAt int64) error
	UpdatePlaybackState(context.Context, *room.UpdatePlaybackStateParams) error
	// participant
	AddParticipant(context.Context, *room.AddParticipantParams) (bool, error)
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	GetParticipantIds(ctx context.Context, roomId string) ([]string, error)
	GetParticipant(context.Context, *room.GetParticipantParams) (room.Participant, error)
}

type iConnTracker interface {
	Bind(conn *websocket.Conn, roomCode string)
	Unbind(conn *websocket.Conn) (string, bool)
	MembersOf(roomCode string) []*websocket.Conn
	RoomOf(conn *websocket.Conn) (string, bool)
	RemoveRoom(roomCode string) []*websocket.Conn
}

type iSender interface {
	Send(conn *websocket.Conn, v any) error
	Forget(conn *websocket.Conn)
}

type iGenerator interface {
	GenerateRandomString(length int) string
}

type Config struct {
	// DefaultCapacity is used when a create request carries no maxParticipants.
	DefaultCapacity int
	// Generator overrides the room code source. Nil selects the crypto/rand
	// backed default.
	Generator iGenerator
}

type service struct {
	roomRepo  iRoomRepo
	tracker   iConnTracker
	sender    iSender
	generator iGenerator
	logger    *slog.Logger

	defaultCapacity int

	// one mutex per room code: sync events for a room are processed and
	// fanned out strictly in order, and never contend across rooms
	locksMu   sync.Mutex
	roomLocks map[string]*sync.Mutex
}

func NewService(roomRepo iRoomRepo, tracker iConnTracker, sender iSender, cfg *Config, logger *slog.Logger) *service {
	generator := cfg.Generator
	if generator == nil {
		generator = randstr.New([]byte(codeAlphabet))
	}

	return &service{
		roomRepo:        roomRepo,
		tracker:         tracker,
		sender:          sender,
		generator:       generator,
		logger:          logger,
		defaultCapacity: cfg.DefaultCapacity,
		roomLocks:       make(map[string]*sync.Mutex),
	}
}

// roomLock returns the mutex for roomCode, creating it on first use. Entries
// are never removed: handing out a fresh mutex while a goroutine still holds
// or waits on the old one would let two events for the same code interleave.
func (s *service) roomLock(roomCode string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()

	lock, ok := s.roomLocks[roomCode]
	if !ok {
		lock = &sync.Mutex{}
		s.roomLocks[roomCode] = lock
	}

	return lock
}
