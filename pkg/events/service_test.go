package events

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/shelfdesk/shelfdesk/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

func insertEvent(t *testing.T, db *bun.DB, eventType string, createdAt time.Time) *models.Event {
	t.Helper()

	event := &models.Event{
		ID:        uuid.NewString(),
		CreatedAt: createdAt,
		Type:      eventType,
		AdminID:   "admin-1",
	}
	require.NoError(t, event.SetPayload(models.BorrowEventData{BorrowID: "borrow-1"}))
	_, err := db.NewInsert().Model(event).Exec(context.Background())
	require.NoError(t, err)
	return event
}

func TestService_ListEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	svc := NewService(db)

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	second := insertEvent(t, db, models.EventTypeBorrowReturned, base.Add(time.Minute))
	first := insertEvent(t, db, models.EventTypeBorrowCreated, base)
	third := insertEvent(t, db, models.EventTypeBorrowCreated, base.Add(2*time.Minute))

	require.NoError(t, svc.MarkPublished(ctx, third))

	pending, err := svc.ListEvents(ctx, ListEventsOptions{Pending: true})
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)
	assert.Equal(t, second.ID, pending[1].ID)

	limited, err := svc.ListEvents(ctx, ListEventsOptions{Pending: true, Limit: pointerutil.Int(1)})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, first.ID, limited[0].ID)

	created, err := svc.ListEvents(ctx, ListEventsOptions{Type: pointerutil.String(models.EventTypeBorrowCreated)})
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestService_MarkFailed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	svc := NewService(db)
	event := insertEvent(t, db, models.EventTypeBorrowCreated, time.Now().UTC())

	require.NoError(t, svc.MarkFailed(ctx, event, errors.New("broker unavailable")))
	require.NoError(t, svc.MarkFailed(ctx, event, errors.New("broker still unavailable")))

	events, err := svc.ListEvents(ctx, ListEventsOptions{Pending: true})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 2, events[0].Attempts)
	require.NotNil(t, events[0].LastError)
	assert.Equal(t, "broker still unavailable", *events[0].LastError)

	exhausted, err := svc.ListEvents(ctx, ListEventsOptions{Pending: true, MaxAttempts: pointerutil.Int(2)})
	require.NoError(t, err)
	assert.Empty(t, exhausted)

	require.NoError(t, svc.MarkPublished(ctx, event))
	events, err = svc.ListEvents(ctx, ListEventsOptions{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.NotNil(t, events[0].PublishedAt)
	assert.Nil(t, events[0].LastError)
}

func TestTruncateError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", truncateError("short"))

	ascii := strings.Repeat("x", maxErrorLength+10)
	assert.Len(t, truncateError(ascii), maxErrorLength)

	// "é" is two bytes, so byte maxErrorLength lands inside one.
	multibyte := "a" + strings.Repeat("é", maxErrorLength)
	got := truncateError(multibyte)
	assert.True(t, utf8.ValidString(got))
	assert.Len(t, got, maxErrorLength-1)
}

func TestService_MarkFailed_LongMultibyteError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := testutils.NewTestDB(t)
	svc := NewService(db)
	event := insertEvent(t, db, models.EventTypeBorrowCreated, time.Now().UTC())

	require.NoError(t, svc.MarkFailed(ctx, event, errors.New("a"+strings.Repeat("é", maxErrorLength))))

	events, err := svc.ListEvents(ctx, ListEventsOptions{Pending: true})
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.NotNil(t, events[0].LastError)
	assert.True(t, utf8.ValidString(*events[0].LastError))
	assert.LessOrEqual(t, len(*events[0].LastError), maxErrorLength)
}
