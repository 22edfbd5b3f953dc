package stats

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/uptrace/bun"
)

// Stats are the dashboard counts for one admin.
type Stats struct {
	Authors        int `json:"authors"`
	Books          int `json:"books"`
	BorrowedBooks  int `json:"borrowedBooks"`
	Users          int `json:"users"`
	ActiveBorrows  int `json:"activeBorrows"`
	OverdueBorrows int `json:"overdueBorrows"`
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) RetrieveStats(ctx context.Context, adminID string, now time.Time) (*Stats, error) {
	s := &Stats{}
	var err error

	s.Authors, err = svc.db.NewSelect().
		Model((*models.Author)(nil)).
		Where("a.admin_id = ?", adminID).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.Books, err = svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("b.admin_id = ?", adminID).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.BorrowedBooks, err = svc.db.NewSelect().
		Model((*models.Book)(nil)).
		Where("b.admin_id = ?", adminID).
		Where("b.is_borrowed = ?", true).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.Users, err = svc.db.NewSelect().
		Model((*models.User)(nil)).
		Where("u.admin_id = ?", adminID).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	owned := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("b.id").
		Where("b.admin_id = ?", adminID)

	s.ActiveBorrows, err = svc.db.NewSelect().
		Model((*models.Borrow)(nil)).
		Where("br.book_id IN (?)", owned).
		Where("br.returned_at IS NULL").
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	s.OverdueBorrows, err = svc.db.NewSelect().
		Model((*models.Borrow)(nil)).
		Where("br.book_id IN (?)", owned).
		Where("br.returned_at IS NULL").
		Where("br.due_at IS NOT NULL").
		Where("br.due_at < ?", now.UTC()).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return s, nil
}
