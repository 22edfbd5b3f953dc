package authors

import (
	"context"
	"database/sql"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
)

const bookCountExpr = "(SELECT COUNT(*) FROM books AS bc WHERE bc.author_id = a.id) AS book_count"

type RetrieveAuthorOptions struct {
	ID      string
	AdminID string
}

type ListAuthorsOptions struct {
	Limit   *int
	Offset  *int
	AdminID string
	Search  *string

	includeTotal bool
}

type UpdateAuthorOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateAuthor(ctx context.Context, author *models.Author) error {
	now := time.Now().UTC()
	author.ID = uuid.NewString()
	author.CreatedAt = now
	author.UpdatedAt = now

	_, err := svc.db.
		NewInsert().
		Model(author).
		Exec(ctx)
	return errors.WithStack(err)
}

// RetrieveAuthor only finds authors owned by opts.AdminID. Anything else is
// reported as not found.
func (svc *Service) RetrieveAuthor(ctx context.Context, opts RetrieveAuthorOptions) (*models.Author, error) {
	author := &models.Author{}

	err := svc.db.
		NewSelect().
		Model(author).
		ColumnExpr("a.*").
		ColumnExpr(bookCountExpr).
		Where("a.id = ?", opts.ID).
		Where("a.admin_id = ?", opts.AdminID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Author")
		}
		return nil, errors.WithStack(err)
	}

	return author, nil
}

func (svc *Service) ListAuthors(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, error) {
	a, _, err := svc.listAuthorsWithTotal(ctx, opts)
	return a, errors.WithStack(err)
}

func (svc *Service) ListAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	opts.includeTotal = true
	return svc.listAuthorsWithTotal(ctx, opts)
}

func (svc *Service) listAuthorsWithTotal(ctx context.Context, opts ListAuthorsOptions) ([]*models.Author, int, error) {
	authors := []*models.Author{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&authors).
		ColumnExpr("a.*").
		ColumnExpr(bookCountExpr).
		Where("a.admin_id = ?", opts.AdminID).
		Order("a.name ASC", "a.id ASC")

	if opts.Search != nil && *opts.Search != "" {
		q = q.Where("LOWER(a.name) LIKE ?", "%"+strings.ToLower(*opts.Search)+"%")
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

	return authors, total, nil
}

func (svc *Service) UpdateAuthor(ctx context.Context, author *models.Author, opts UpdateAuthorOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	author.UpdatedAt = time.Now().UTC()
	columns := append(slices.Clone(opts.Columns), "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(author).
		Column(columns...).
		WherePK().
		Where("admin_id = ?", author.AdminID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Author")
	}
	return nil
}

// DeleteAuthor removes the author together with its books and their borrow
// history. It refuses while any of those books is out on loan.
func (svc *Service) DeleteAuthor(ctx context.Context, id, adminID string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.Author)(nil)).
			Where("a.id = ?", id).
			Where("a.admin_id = ?", adminID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Author")
		}

		bookIDs := tx.NewSelect().
			Model((*models.Book)(nil)).
			ColumnExpr("b.id").
			Where("b.author_id = ?", id)

		borrowed, err := tx.NewSelect().
			Model((*models.Borrow)(nil)).
			Where("br.book_id IN (?)", bookIDs).
			Where("br.returned_at IS NULL").
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if borrowed {
			return errcodes.Conflict("Author has books that are currently borrowed.")
		}

		_, err = tx.NewDelete().
			Model((*models.Borrow)(nil)).
			Where("book_id IN (?)", bookIDs).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Book)(nil)).
			Where("author_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.Author)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}

// ListAuthorBooks returns the author's books ordered by title.
func (svc *Service) ListAuthorBooks(ctx context.Context, opts RetrieveAuthorOptions) ([]*models.Book, error) {
	if _, err := svc.RetrieveAuthor(ctx, opts); err != nil {
		return nil, err
	}

	books := []*models.Book{}
	err := svc.db.NewSelect().
		Model(&books).
		Where("b.author_id = ?", opts.ID).
		Where("b.admin_id = ?", opts.AdminID).
		Order("b.title ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}
