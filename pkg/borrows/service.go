package borrows

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/database"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
)

const alreadyBorrowed = "Book is already borrowed."

type BorrowBookOptions struct {
	BookID  string
	UserID  string
	AdminID string
	DueAt   *time.Time
}

type RetrieveBorrowOptions struct {
	ID      string
	AdminID string
}

type ListBorrowsOptions struct {
	Limit   *int
	Offset  *int
	AdminID string
	UserID  *string
	// Status is one of the models.BorrowStatus values. Empty means active.
	Status  string
	Overdue bool

	includeTotal bool
}

type Service struct {
	db  *bun.DB
	now func() time.Time
}

func NewService(db *bun.DB) *Service {
	return &Service{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// BorrowBook lends a book to a member. The book flag, the borrow row and the
// outbox event are written in one transaction. The flag is flipped with a
// conditional update so that only one of several concurrent borrows can win.
func (svc *Service) BorrowBook(ctx context.Context, opts BorrowBookOptions) (*models.Borrow, error) {
	now := svc.now()
	borrow := &models.Borrow{
		ID:         uuid.NewString(),
		UserID:     opts.UserID,
		BookID:     opts.BookID,
		BorrowedAt: now,
	}
	if opts.DueAt != nil {
		due := opts.DueAt.UTC()
		borrow.DueAt = &due
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().
			Model(book).
			Where("b.id = ?", opts.BookID).
			Where("b.admin_id = ?", opts.AdminID).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}
		if book.IsBorrowed {
			return errcodes.BadRequest(alreadyBorrowed)
		}

		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("u.id = ?", opts.UserID).
			Where("u.admin_id = ?", opts.AdminID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}

		res, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("is_borrowed = ?", true).
			Set("updated_at = ?", now).
			Where("id = ?", opts.BookID).
			Where("admin_id = ?", opts.AdminID).
			Where("is_borrowed = ?", false).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.BadRequest(alreadyBorrowed)
		}

		_, err = tx.NewInsert().Model(borrow).Exec(ctx)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return errcodes.BadRequest(alreadyBorrowed)
			}
			return errors.WithStack(err)
		}

		return svc.recordEvent(ctx, tx, models.EventTypeBorrowCreated, opts.AdminID, borrow)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveBorrow(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: opts.AdminID})
}

// ReturnBook closes an open borrow of one of the admin's books. Closed,
// unknown and foreign borrows are all reported as not found.
func (svc *Service) ReturnBook(ctx context.Context, opts RetrieveBorrowOptions) (*models.Borrow, error) {
	now := svc.now()

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		borrow := &models.Borrow{}
		err := tx.NewSelect().
			Model(borrow).
			Where("br.id = ?", opts.ID).
			Where("br.returned_at IS NULL").
			Where("br.book_id IN (?)", ownedBookIDs(tx, opts.AdminID)).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Active borrow record")
			}
			return errors.WithStack(err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("is_borrowed = ?", false).
			Set("updated_at = ?", now).
			Where("id = ?", borrow.BookID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		res, err := tx.NewUpdate().
			Model((*models.Borrow)(nil)).
			Set("returned_at = ?", now).
			Where("id = ?", borrow.ID).
			Where("returned_at IS NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Active borrow record")
		}

		borrow.ReturnedAt = &now
		return svc.recordEvent(ctx, tx, models.EventTypeBorrowReturned, opts.AdminID, borrow)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveBorrow(ctx, opts)
}

// RetrieveBorrow finds an open or closed borrow of one of the admin's books.
func (svc *Service) RetrieveBorrow(ctx context.Context, opts RetrieveBorrowOptions) (*models.Borrow, error) {
	borrow := &models.Borrow{}

	err := svc.db.
		NewSelect().
		Model(borrow).
		Relation("Book").
		Relation("Book.Author").
		Relation("User").
		Where("br.id = ?", opts.ID).
		Where("br.book_id IN (?)", ownedBookIDs(svc.db, opts.AdminID)).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Borrow")
		}
		return nil, errors.WithStack(err)
	}

	borrow.MarkOverdue(svc.now())
	return borrow, nil
}

func (svc *Service) ListBorrows(ctx context.Context, opts ListBorrowsOptions) ([]*models.Borrow, error) {
	b, _, err := svc.listBorrowsWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBorrowsWithTotal(ctx context.Context, opts ListBorrowsOptions) ([]*models.Borrow, int, error) {
	opts.includeTotal = true
	return svc.listBorrowsWithTotal(ctx, opts)
}

// ListUserActiveBorrows lists what a member currently has out, newest first.
func (svc *Service) ListUserActiveBorrows(ctx context.Context, userID, adminID string) ([]*models.Borrow, error) {
	exists, err := svc.db.NewSelect().
		Model((*models.User)(nil)).
		Where("u.id = ?", userID).
		Where("u.admin_id = ?", adminID).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if !exists {
		return nil, errcodes.NotFound("User")
	}

	return svc.ListBorrows(ctx, ListBorrowsOptions{
		AdminID: adminID,
		UserID:  &userID,
		Status:  models.BorrowStatusActive,
	})
}

func (svc *Service) listBorrowsWithTotal(ctx context.Context, opts ListBorrowsOptions) ([]*models.Borrow, int, error) {
	borrows := []*models.Borrow{}
	var total int
	var err error
	now := svc.now()

	q := svc.db.
		NewSelect().
		Model(&borrows).
		Relation("Book").
		Relation("Book.Author").
		Relation("User").
		Where("br.book_id IN (?)", ownedBookIDs(svc.db, opts.AdminID)).
		Order("br.borrowed_at DESC", "br.id ASC")

	switch opts.Status {
	case models.BorrowStatusAll:
	case models.BorrowStatusReturned:
		q = q.Where("br.returned_at IS NOT NULL")
	default:
		q = q.Where("br.returned_at IS NULL")
	}
	if opts.Overdue {
		q = q.
			Where("br.returned_at IS NULL").
			Where("br.due_at IS NOT NULL").
			Where("br.due_at < ?", now)
	}
	if opts.UserID != nil {
		q = q.Where("br.user_id = ?", *opts.UserID)
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	for _, borrow := range borrows {
		borrow.MarkOverdue(now)
	}

	return borrows, total, nil
}

func (svc *Service) recordEvent(ctx context.Context, tx bun.Tx, eventType, adminID string, borrow *models.Borrow) error {
	event := &models.Event{
		ID:        uuid.NewString(),
		CreatedAt: svc.now(),
		Type:      eventType,
		AdminID:   adminID,
	}
	err := event.SetPayload(models.BorrowEventData{
		BorrowID:   borrow.ID,
		BookID:     borrow.BookID,
		UserID:     borrow.UserID,
		BorrowedAt: borrow.BorrowedAt,
		DueAt:      borrow.DueAt,
		ReturnedAt: borrow.ReturnedAt,
	})
	if err != nil {
		return err
	}

	_, err = tx.NewInsert().Model(event).Exec(ctx)
	return errors.WithStack(err)
}

func ownedBookIDs(db bun.IDB, adminID string) *bun.SelectQuery {
	return db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("b.id").
		Where("b.admin_id = ?", adminID)
}
