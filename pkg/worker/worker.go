package worker

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/events"
	"github.com/uptrace/bun"
)

// maxAttempts is how often an event is tried before the worker gives up on it.
// Given up events stay in the table with their last error.
const maxAttempts = 10

var processID = randStringBytes(8)

// Worker drains the event outbox into a Publisher.
type Worker struct {
	config *config.Config
	log    logger.Logger

	eventService *events.Service
	publisher    events.Publisher

	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg *config.Config, db *bun.DB, publisher events.Publisher) *Worker {
	return &Worker{
		config: cfg,
		log:    logger.New(),

		eventService: events.NewService(db),
		publisher:    publisher,

		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (w *Worker) Start() {
	go w.dispatchEvents()
}

func (w *Worker) dispatchEvents() {
	duration := w.config.EventPollInterval
	timer := time.NewTimer(duration)
	defer timer.Stop()

	for {
		select {
		case <-w.shutdown:
			w.done <- struct{}{}
			return
		case <-timer.C:
			if _, err := w.DispatchPending(context.Background()); err != nil {
				w.log.Err(err).Error("dispatch events error")
			}
			timer.Reset(duration)
		}
	}
}

// DispatchPending publishes one batch of unpublished events, oldest first, and
// returns how many were published.
func (w *Worker) DispatchPending(ctx context.Context) (int, error) {
	pending, err := w.eventService.ListEvents(ctx, events.ListEventsOptions{
		Limit:       pointerutil.Int(w.config.EventBatchSize),
		Pending:     true,
		MaxAttempts: pointerutil.Int(maxAttempts),
	})
	if err != nil {
		return 0, err
	}

	published := 0
	for _, event := range pending {
		id, err := uuid.NewRandom()
		if err != nil {
			return published, err
		}
		log := w.log.ID(id.String()).Root(logger.Data{"event_id": event.ID, "type": event.Type, "process_id": processID})
		ctx := log.WithContext(ctx)

		if err := w.publisher.Publish(ctx, event); err != nil {
			log.Err(err).Warn("publish event error")
			if err := w.eventService.MarkFailed(ctx, event, err); err != nil {
				log.Err(err).Error("update event error")
			}
			continue
		}

		if err := w.eventService.MarkPublished(ctx, event); err != nil {
			log.Err(err).Error("update event error")
			continue
		}
		published++
	}

	return published, nil
}

// Shutdown stops polling and waits for the batch in flight to finish.
func (w *Worker) Shutdown() {
	close(w.shutdown)
	<-w.done
}

const letterBytes = "abcdef0123456789"

func randStringBytes(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letterBytes[rand.Intn(len(letterBytes))]
	}
	return string(b)
}
