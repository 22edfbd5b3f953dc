package events

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
)

// maxErrorLength keeps last_error readable when a broker returns a long
// diagnostic.
const maxErrorLength = 1000

type ListEventsOptions struct {
	Limit       *int
	Pending     bool
	AdminID     *string
	Type        *string
	MaxAttempts *int
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// ListEvents returns events oldest first.
func (svc *Service) ListEvents(ctx context.Context, opts ListEventsOptions) ([]*models.Event, error) {
	events := []*models.Event{}

	q := svc.db.
		NewSelect().
		Model(&events).
		Order("ev.created_at ASC", "ev.id ASC")

	if opts.Pending {
		q = q.Where("ev.published_at IS NULL")
	}
	if opts.AdminID != nil {
		q = q.Where("ev.admin_id = ?", *opts.AdminID)
	}
	if opts.Type != nil {
		q = q.Where("ev.type = ?", *opts.Type)
	}
	if opts.MaxAttempts != nil {
		q = q.Where("ev.attempts < ?", *opts.MaxAttempts)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return events, nil
}

func (svc *Service) MarkPublished(ctx context.Context, event *models.Event) error {
	now := time.Now().UTC()
	event.PublishedAt = &now
	event.LastError = nil

	_, err := svc.db.
		NewUpdate().
		Model(event).
		Column("published_at", "last_error").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) MarkFailed(ctx context.Context, event *models.Event, cause error) error {
	msg := truncateError(cause.Error())
	event.Attempts++
	event.LastError = &msg

	_, err := svc.db.
		NewUpdate().
		Model(event).
		Column("attempts", "last_error").
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

// truncateError cuts msg to at most maxErrorLength bytes without splitting a
// UTF-8 sequence.
func truncateError(msg string) string {
	if len(msg) <= maxErrorLength {
		return msg
	}
	cut := maxErrorLength
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut]
}
