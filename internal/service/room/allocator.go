package room

import (
	"context"
	"fmt"
)

// allocateCode draws 6 uniform characters from [A-Z0-9] and reserves the code
// for roomId in one conditional store write, so two concurrent allocations can
// never hand out the same code. Retries are bounded: past the cap the caller
// gets ErrAllocationExhausted instead of an unbounded collision loop.
func (s *service) allocateCode(ctx context.Context, roomId string) (string, error) {
	for attempt := 0; attempt < maxAllocateAttempts; attempt++ {
		code := s.generator.GenerateRandomString(codeLength)

		reserved, err := s.roomRepo.ReserveCode(ctx, code, roomId)
		if err != nil {
			return "", fmt.Errorf("failed to reserve room code: %w", err)
		}
		if reserved {
			return code, nil
		}

		s.logger.DebugContext(ctx, "room code collision", "room_code", code, "attempt", attempt+1)
	}

	return "", ErrAllocationExhausted
}
