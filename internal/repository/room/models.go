package room

type Room struct {
	RoomCode        string  `redis:"room_code"`
	MovieSlug       string  `redis:"movie_slug"`
	MovieName       string  `redis:"movie_name"`
	MoviePoster     string  `redis:"movie_poster"`
	Host            string  `redis:"host"`
	HostName        string  `redis:"host_name"`
	MaxParticipants int     `redis:"max_participants"`
	IsActive        bool    `redis:"is_active"`
	CurrentTime     float64 `redis:"current_time"`
	IsPlaying       bool    `redis:"is_playing"`
	CurrentServer   int     `redis:"current_server"`
	CurrentEpisode  int     `redis:"current_episode"`
	CreatedAt       int64   `redis:"created_at"`
	UpdatedAt       int64   `redis:"updated_at"`
}

type Participant struct {
	Name     string `redis:"name"`
	Avatar   string `redis:"avatar"`
	JoinedAt int64  `redis:"joined_at"`
}
