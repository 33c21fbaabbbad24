package room

import (
	"context"
	"time"

	"github.com/cinewatch/server/internal/domain"
	"github.com/cinewatch/server/internal/repository/room"
)

func toDomainRoom(roomCode string, rm room.Room, participants []domain.Participant) domain.WatchRoom {
	return domain.WatchRoom{
		RoomCode:        roomCode,
		MovieSlug:       rm.MovieSlug,
		MovieName:       rm.MovieName,
		MoviePoster:     rm.MoviePoster,
		Host:            rm.Host,
		HostName:        rm.HostName,
		Participants:    participants,
		MaxParticipants: rm.MaxParticipants,
		IsActive:        rm.IsActive,
		CurrentTime:     rm.CurrentTime,
		IsPlaying:       rm.IsPlaying,
		CurrentServer:   rm.CurrentServer,
		CurrentEpisode:  rm.CurrentEpisode,
		CreatedAt:       time.Unix(rm.CreatedAt, 0).UTC(),
		UpdatedAt:       time.Unix(rm.UpdatedAt, 0).UTC(),
	}
}

func (s *service) getParticipants(ctx context.Context, roomId string) ([]domain.Participant, error) {
	userIds, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return nil, err
	}

	participants := make([]domain.Participant, 0, len(userIds))
	for _, userId := range userIds {
		participant, err := s.roomRepo.GetParticipant(ctx, &room.GetParticipantParams{
			RoomId: roomId,
			UserId: userId,
		})
		if err != nil {
			return nil, err
		}

		participants = append(participants, domain.Participant{
			UserId:   userId,
			Name:     participant.Name,
			Avatar:   participant.Avatar,
			JoinedAt: time.Unix(participant.JoinedAt, 0).UTC(),
		})
	}

	return participants, nil
}

func (s *service) getDomainRoom(ctx context.Context, roomId string) (domain.WatchRoom, error) {
	rm, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		return domain.WatchRoom{}, err
	}

	participants, err := s.getParticipants(ctx, roomId)
	if err != nil {
		return domain.WatchRoom{}, err
	}

	return toDomainRoom(rm.RoomCode, rm, participants), nil
}
