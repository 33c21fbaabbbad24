package room

import "github.com/cinewatch/server/internal/domain"

// Event is the wire envelope for every outbound real-time message.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

const (
	EventSyncState     = "sync-state"
	EventUserJoined    = "user-joined"
	EventUserLeft      = "user-left"
	EventVideoPlay     = "video-play"
	EventVideoPause    = "video-pause"
	EventVideoSeek     = "video-seek"
	EventEpisodeChange = "episode-change"
	EventRoomClosed    = "room-closed"
	EventError         = "error"
)

type UserJoinedPayload struct {
	UserId           string `json:"userId"`
	UserName         string `json:"userName"`
	ParticipantCount int    `json:"participantCount"`
}

type UserLeftPayload struct {
	ParticipantCount int `json:"participantCount"`
}

type PlaybackEventPayload struct {
	CurrentTime float64 `json:"currentTime"`
	TriggeredBy string  `json:"triggeredBy"`
}

type EpisodeChangePayload struct {
	ServerIndex  int    `json:"serverIndex"`
	EpisodeIndex int    `json:"episodeIndex"`
	TriggeredBy  string `json:"triggeredBy"`
}

type RoomClosedPayload struct {
	Message string `json:"message"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewSyncStateEvent(state domain.PlaybackState) *Event {
	return &Event{Type: EventSyncState, Payload: state}
}

func NewErrorEvent(message string) *Event {
	return &Event{Type: EventError, Payload: ErrorPayload{Message: message}}
}
