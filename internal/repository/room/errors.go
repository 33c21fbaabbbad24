package room

import "errors"

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrRoomFull            = errors.New("room is full")
	ErrCodeTaken           = errors.New("room code already taken")
	ErrParticipantNotFound = errors.New("participant not found")
)
