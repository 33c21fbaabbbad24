package domain

import "time"

// Participant is a durably recorded member of a room, distinct from a
// currently connected client.
type Participant struct {
	UserId   string    `json:"userId"`
	Name     string    `json:"name"`
	Avatar   string    `json:"avatar"`
	JoinedAt time.Time `json:"joinedAt"`
}

// WatchRoom pairs a shared movie-watching session with its authoritative
// playback state. RoomCode is unique among active rooms only; a closed room is
// retained forever and its code may be reused by a later room.
type WatchRoom struct {
	RoomCode        string        `json:"roomCode"`
	MovieSlug       string        `json:"movieSlug"`
	MovieName       string        `json:"movieName"`
	MoviePoster     string        `json:"moviePoster"`
	Host            string        `json:"host"`
	HostName        string        `json:"hostName"`
	Participants    []Participant `json:"participants"`
	MaxParticipants int           `json:"maxParticipants"`
	IsActive        bool          `json:"isActive"`
	CurrentTime     float64       `json:"currentTime"`
	IsPlaying       bool          `json:"isPlaying"`
	CurrentServer   int           `json:"currentServer"`
	CurrentEpisode  int           `json:"currentEpisode"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
}

// PlaybackState is the shared tuple all room members see synchronized.
type PlaybackState struct {
	CurrentTime    float64 `json:"currentTime"`
	IsPlaying      bool    `json:"isPlaying"`
	CurrentServer  int     `json:"currentServer"`
	CurrentEpisode int     `json:"currentEpisode"`
}
