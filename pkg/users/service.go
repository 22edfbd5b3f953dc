package users

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

const (
	borrowCountExpr       = "(SELECT COUNT(*) FROM borrows AS bc WHERE bc.user_id = u.id) AS borrow_count"
	activeBorrowCountExpr = "(SELECT COUNT(*) FROM borrows AS bc WHERE bc.user_id = u.id AND bc.returned_at IS NULL) AS active_borrow_count"
)

type RetrieveUserOptions struct {
	ID      string
	AdminID string
}

type ListUsersOptions struct {
	Limit   *int
	Offset  *int
	AdminID string
	Search  *string

	includeTotal bool
}

type UpdateUserOptions struct {
	Columns []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateUser(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.ID = uuid.NewString()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := svc.db.
		NewInsert().
		Model(user).
		Exec(ctx)
	return errors.WithStack(err)
}

func (svc *Service) RetrieveUser(ctx context.Context, opts RetrieveUserOptions) (*models.User, error) {
	user := &models.User{}

	err := svc.db.
		NewSelect().
		Model(user).
		ColumnExpr("u.*").
		ColumnExpr(borrowCountExpr).
		ColumnExpr(activeBorrowCountExpr).
		Where("u.id = ?", opts.ID).
		Where("u.admin_id = ?", opts.AdminID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}

	return user, nil
}

func (svc *Service) ListUsers(ctx context.Context, opts ListUsersOptions) ([]*models.User, error) {
	u, _, err := svc.listUsersWithTotal(ctx, opts)
	return u, errors.WithStack(err)
}

func (svc *Service) ListUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	opts.includeTotal = true
	return svc.listUsersWithTotal(ctx, opts)
}

func (svc *Service) listUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	users := []*models.User{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&users).
		ColumnExpr("u.*").
		ColumnExpr(borrowCountExpr).
		ColumnExpr(activeBorrowCountExpr).
		Where("u.admin_id = ?", opts.AdminID).
		Order("u.name ASC", "u.id ASC")

	if opts.Search != nil && *opts.Search != "" {
		pattern := "%" + strings.ToLower(*opts.Search) + "%"
		q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("LOWER(u.name) LIKE ?", pattern).
				WhereOr("LOWER(u.email) LIKE ?", pattern)
		})
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

	return users, total, nil
}

func (svc *Service) UpdateUser(ctx context.Context, user *models.User, opts UpdateUserOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	user.UpdatedAt = time.Now().UTC()
	columns := append(slices.Clone(opts.Columns), "updated_at")

	res, err := svc.db.
		NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Where("admin_id = ?", user.AdminID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}

// DeleteUser removes the member and their borrow history. Members with a book
// still out can't be deleted.
func (svc *Service) DeleteUser(ctx context.Context, id, adminID string) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*models.User)(nil)).
			Where("u.id = ?", id).
			Where("u.admin_id = ?", adminID).
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("User")
		}

		borrowing, err := tx.NewSelect().
			Model((*models.Borrow)(nil)).
			Where("br.user_id = ?", id).
			Where("br.returned_at IS NULL").
			Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if borrowing {
			return errcodes.Conflict("User has books that are currently borrowed.")
		}

		_, err = tx.NewDelete().
			Model((*models.Borrow)(nil)).
			Where("user_id = ?", id).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = tx.NewDelete().
			Model((*models.User)(nil)).
			Where("id = ?", id).
			Exec(ctx)
		return errors.WithStack(err)
	})
}
