package room

type CreateRoomParams struct {
	RoomId          string
	RoomCode        string
	MovieSlug       string
	MovieName       string
	MoviePoster     string
	Host            string
	HostName        string
	HostAvatar      string
	MaxParticipants int
	CreatedAt       int64
}

type GetParticipantParams struct {
	RoomId string
	UserId string
}

type AddParticipantParams struct {
	RoomId   string
	UserId   string
	Name     string
	Avatar   string
	JoinedAt int64
}

type RemoveParticipantParams struct {
	RoomId string
	UserId string
}

// UpdatePlaybackStateParams carries a partial merge: nil fields are left
// untouched on the stored room.
type UpdatePlaybackStateParams struct {
	RoomId         string
	CurrentTime    *float64
	IsPlaying      *bool
	CurrentServer  *int
	CurrentEpisode *int
	UpdatedAt      int64
}
