package room

import (
	"context"

	"github.com/gorilla/websocket"
)

// broadcast delivers event to every connection bound to roomCode except the
// originator. Send failures are logged and skipped: a dead peer must not
// block delivery to the rest of the room.
func (s *service) broadcast(ctx context.Context, roomCode string, except *websocket.Conn, event *Event) {
	for _, conn := range s.tracker.MembersOf(roomCode) {
		if conn == except {
			continue
		}

		if err := s.sender.Send(conn, event); err != nil {
			s.logger.InfoContext(ctx, "failed to send event", "event_type", event.Type, "error", err)
		}
	}
}

func (s *service) sendTo(ctx context.Context, conn *websocket.Conn, event *Event) {
	if err := s.sender.Send(conn, event); err != nil {
		s.logger.InfoContext(ctx, "failed to send event", "event_type", event.Type, "error", err)
	}
}
