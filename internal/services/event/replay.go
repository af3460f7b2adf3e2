package event

import (
	"context"
	"errors"
	"time"

	"krostyshop/internal/domain/event"
	"krostyshop/internal/domain/user"
	"krostyshop/internal/services/svcerr"
	"krostyshop/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

const (
	defaultReplayMax = 200
	maxReplayMax     = 1000
)

// ReplayService requeues stored events for the worker
type ReplayService struct {
	eventRepo repositories.EventRepository
}

// NewReplayService creates a new event replay service
func NewReplayService(eventRepo repositories.EventRepository) *ReplayService {
	return &ReplayService{eventRepo: eventRepo}
}

// ReplayRequest selects events either by id or by received time window
type ReplayRequest struct {
	EventIDs []int64    `json:"eventIds,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
	Max      int        `json:"max,omitempty"`
}

// ReplayResponse represents the result of an event replay operation
type ReplayResponse struct {
	RequeuedCount int `json:"requeued"`
}

// ReplayEvents requeues the selected events. Unknown ids are skipped.
func (s *ReplayService) ReplayEvents(ctx context.Context, actor user.Actor, req ReplayRequest) (*ReplayResponse, error) {
	if !actor.IsAdmin() {
		return nil, svcerr.ErrForbidden
	}
	if req.Since != nil && req.Until != nil && req.Until.Before(*req.Since) {
		return nil, svcerr.Invalid("until", "must not be before since")
	}

	ids := req.EventIDs
	if len(ids) == 0 {
		max := req.Max
		if max <= 0 || max > maxReplayMax {
			max = defaultReplayMax
		}
		var err error
		ids, err = s.eventRepo.FindIDsInWindow(ctx, req.Since, req.Until, max)
		if err != nil {
			return nil, svcerr.Wrap("find_events", err)
		}
	}

	count := 0
	for _, id := range ids {
		if err := s.eventRepo.MarkForReprocessing(ctx, id); err != nil {
			if !errors.Is(err, event.ErrNotFound) {
				return nil, svcerr.Wrap("requeue_event", err)
			}
			continue
		}
		count++
	}

	log.Info().Int("requeued", count).Str("admin_id", actor.ID.String()).Msg("events requeued")
	return &ReplayResponse{RequeuedCount: count}, nil
}
