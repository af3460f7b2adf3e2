package event

import (
	"context"
	"time"

	"krostyshop/internal/domain/event"
	"krostyshop/internal/store/repositories"

	"github.com/rs/zerolog/log"
)

// Worker handles background processing of provider events
type Worker struct {
	eventRepo repositories.EventRepository
	processor *Processor
	pollEvery time.Duration
	batchSize int
}

// NewWorker creates a new event processing worker
func NewWorker(
	eventRepo repositories.EventRepository,
	processor *Processor,
	pollEvery time.Duration,
	batchSize int,
) *Worker {
	if pollEvery == 0 {
		pollEvery = 2 * time.Second
	}
	if batchSize == 0 {
		batchSize = 50
	}

	return &Worker{
		eventRepo: eventRepo,
		processor: processor,
		pollEvery: pollEvery,
		batchSize: batchSize,
	}
}

// Run processes events until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	log.Info().
		Dur("poll_every", w.pollEvery).
		Int("batch_size", w.batchSize).
		Msg("event processing worker started")

	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("event processing worker stopping")
			return
		case <-ticker.C:
			if _, err := w.processNextBatch(ctx); err != nil {
				log.Error().Err(err).Msg("error processing event batch")
			}
		}
	}
}

// processNextBatch processes up to batchSize pending events, oldest first,
// and returns how many were handled without error.
func (w *Worker) processNextBatch(ctx context.Context) (int, error) {
	events, err := w.eventRepo.FindUnprocessed(ctx, w.batchSize)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	log.Debug().Int("count", len(events)).Msg("processing event batch")

	done := 0
	for _, evt := range events {
		if err := w.processEvent(ctx, evt); err != nil {
			// one bad event must not stall the queue
			continue
		}
		done++
	}
	return done, nil
}

func (w *Worker) processEvent(ctx context.Context, evt *event.Event) error {
	start := time.Now()
	err := w.processor.ProcessEvent(ctx, evt)
	duration := time.Since(start)

	if err != nil {
		log.Error().
			Err(err).
			Int64("event_id", evt.ID).
			Str("biz_type", evt.BizType).
			Str("external_id", evt.ExternalID).
			Dur("duration", duration).
			Msg("event processing failed")
		return err
	}

	log.Info().
		Int64("event_id", evt.ID).
		Str("biz_type", evt.BizType).
		Str("biz_status", evt.BizStatus).
		Dur("duration", duration).
		Msg("event processed")
	return nil
}

// ProcessEventByID processes a specific event immediately
func (w *Worker) ProcessEventByID(ctx context.Context, eventID int64) error {
	evt, err := w.eventRepo.FindByID(ctx, eventID)
	if err != nil {
		return err
	}
	return w.processor.ProcessEvent(ctx, evt)
}

// ReprocessEvent requeues an event and processes it right away
func (w *Worker) ReprocessEvent(ctx context.Context, eventID int64) error {
	if err := w.eventRepo.MarkForReprocessing(ctx, eventID); err != nil {
		return err
	}
	return w.ProcessEventByID(ctx, eventID)
}
