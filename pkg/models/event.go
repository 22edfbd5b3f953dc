package models

import (
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	EventTypeBorrowCreated  = "borrow.created"
	EventTypeBorrowReturned = "borrow.returned"
)

// Event is an outbox row. It is written in the same transaction as the change
// it describes and published later by the worker.
type Event struct {
	bun.BaseModel `bun:"table:events,alias:ev"`

	ID          string     `bun:",pk" json:"id"`
	CreatedAt   time.Time  `json:"createdAt"`
	Type        string     `bun:",notnull" json:"type"`
	AdminID     string     `bun:",notnull" json:"adminId"`
	Payload     string     `bun:",notnull" json:"-"`
	PublishedAt *time.Time `json:"publishedAt"`
	Attempts    int        `bun:",notnull" json:"attempts"`
	LastError   *string    `json:"lastError"`
}

// BorrowEventData is the payload of both borrow event types.
type BorrowEventData struct {
	BorrowID   string     `json:"borrowId"`
	BookID     string     `json:"bookId"`
	UserID     string     `json:"userId"`
	BorrowedAt time.Time  `json:"borrowedAt"`
	DueAt      *time.Time `json:"dueAt,omitempty"`
	ReturnedAt *time.Time `json:"returnedAt,omitempty"`
}

func (ev *Event) SetPayload(data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return errors.WithStack(err)
	}
	ev.Payload = string(b)
	return nil
}

func (ev *Event) UnmarshalPayload(dst any) error {
	return errors.WithStack(json.Unmarshal([]byte(ev.Payload), dst))
}
