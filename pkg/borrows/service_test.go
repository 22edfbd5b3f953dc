package borrows

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/shelfdesk/shelfdesk/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type fixture struct {
	db     *bun.DB
	svc    *Service
	admin  *models.Admin
	author *models.Author
	book   *models.Book
	user   *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutils.NewTestDB(t)
	admin := testutils.CreateAdmin(t, db, "alice@x.com")
	author := testutils.CreateAuthor(t, db, admin.ID, "George Orwell")

	return &fixture{
		db:     db,
		svc:    NewService(db),
		admin:  admin,
		author: author,
		book:   testutils.CreateBook(t, db, admin.ID, author.ID, "1984"),
		user:   testutils.CreateUser(t, db, admin.ID, "bob"),
	}
}

func (f *fixture) reloadBook(t *testing.T) *models.Book {
	t.Helper()
	book := &models.Book{}
	err := f.db.NewSelect().Model(book).Where("b.id = ?", f.book.ID).Scan(context.Background())
	require.NoError(t, err)
	return book
}

func (f *fixture) count(t *testing.T, model any, where ...string) int {
	t.Helper()
	q := f.db.NewSelect().Model(model)
	for _, w := range where {
		q = q.Where(w)
	}
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestService_BorrowAndReturn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	due := time.Now().UTC().Add(14 * 24 * time.Hour)
	borrow, err := f.svc.BorrowBook(ctx, BorrowBookOptions{
		BookID:  f.book.ID,
		UserID:  f.user.ID,
		AdminID: f.admin.ID,
		DueAt:   &due,
	})
	require.NoError(t, err)
	assert.Nil(t, borrow.ReturnedAt)
	assert.False(t, borrow.IsOverdue)
	require.NotNil(t, borrow.DueAt)
	require.NotNil(t, borrow.Book)
	assert.True(t, borrow.Book.IsBorrowed)
	require.NotNil(t, borrow.Book.Author)
	assert.Equal(t, "George Orwell", borrow.Book.Author.Name)
	require.NotNil(t, borrow.User)
	assert.Equal(t, "bob", borrow.User.Name)
	assert.True(t, f.reloadBook(t).IsBorrowed)

	returned, err := f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: f.admin.ID})
	require.NoError(t, err)
	require.NotNil(t, returned.ReturnedAt)
	assert.False(t, returned.Book.IsBorrowed)
	assert.False(t, f.reloadBook(t).IsBorrowed)

	events := []*models.Event{}
	require.NoError(t, f.db.NewSelect().Model(&events).Order("ev.created_at ASC", "ev.type ASC").Scan(ctx))
	require.Len(t, events, 2)
	assert.Equal(t, models.EventTypeBorrowCreated, events[0].Type)
	assert.Equal(t, models.EventTypeBorrowReturned, events[1].Type)
	assert.Nil(t, events[0].PublishedAt)

	var data models.BorrowEventData
	require.NoError(t, events[1].UnmarshalPayload(&data))
	assert.Equal(t, borrow.ID, data.BorrowID)
	assert.NotNil(t, data.ReturnedAt)

	// The book can go out again once it is back.
	_, err = f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)
	assert.True(t, f.reloadBook(t).IsBorrowed)
}

func TestService_BorrowBook_AlreadyBorrowed(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	other := testutils.CreateUser(t, f.db, f.admin.ID, "carol")

	_, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	_, err = f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: other.ID, AdminID: f.admin.ID})
	assert.ErrorIs(t, err, errcodes.BadRequest("Book is already borrowed."))

	assert.Equal(t, 1, f.count(t, (*models.Borrow)(nil)))
	assert.Equal(t, 1, f.count(t, (*models.Event)(nil)))
}

func TestService_BorrowBook_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	bob := testutils.CreateAdmin(t, f.db, "bob@x.com")
	foreignUser := testutils.CreateUser(t, f.db, bob.ID, "mallory")

	_, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: "missing", UserID: f.user.ID, AdminID: f.admin.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))

	_, err = f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: bob.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Book"))

	_, err = f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: foreignUser.ID, AdminID: f.admin.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("User"))

	assert.False(t, f.reloadBook(t).IsBorrowed)
	assert.Zero(t, f.count(t, (*models.Borrow)(nil)))
	assert.Zero(t, f.count(t, (*models.Event)(nil)))
}

func TestService_ReturnBook_NotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	bob := testutils.CreateAdmin(t, f.db, "bob@x.com")

	borrow, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	_, err = f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: bob.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Active borrow record"))
	assert.True(t, f.reloadBook(t).IsBorrowed)

	_, err = f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: "missing", AdminID: f.admin.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Active borrow record"))

	_, err = f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	_, err = f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: f.admin.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Active borrow record"))
	assert.False(t, f.reloadBook(t).IsBorrowed)
	assert.Equal(t, 2, f.count(t, (*models.Event)(nil)))
}

func TestService_BorrowBook_Concurrent(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	const attempts = 8
	members := make([]*models.User, attempts)
	for i := range members {
		members[i] = testutils.CreateUser(t, f.db, f.admin.ID, "member"+string(rune('a'+i)))
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.BorrowBook(ctx, BorrowBookOptions{
				BookID:  f.book.ID,
				UserID:  members[i].ID,
				AdminID: f.admin.ID,
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, errcodes.BadRequest("Book is already borrowed."))
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, f.count(t, (*models.Borrow)(nil), "returned_at IS NULL"))
	assert.True(t, f.reloadBook(t).IsBorrowed)
}

func TestService_ListBorrows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	second := testutils.CreateBook(t, f.db, f.admin.ID, f.author.ID, "Animal Farm")
	third := testutils.CreateBook(t, f.db, f.admin.ID, f.author.ID, "Homage to Catalonia")
	bob := testutils.CreateAdmin(t, f.db, "bob@x.com")

	start := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return start }
	pastDue := start.Add(24 * time.Hour)
	first, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: f.admin.ID, DueAt: &pastDue})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(time.Hour) }
	returned, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: second.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)
	_, err = f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: returned.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(2 * time.Hour) }
	latest, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: third.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return start.Add(48 * time.Hour) }

	active, total, err := f.svc.ListBorrowsWithTotal(ctx, ListBorrowsOptions{AdminID: f.admin.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, active, 2)
	assert.Equal(t, latest.ID, active[0].ID)
	assert.Equal(t, first.ID, active[1].ID)
	assert.True(t, active[1].IsOverdue)
	assert.False(t, active[0].IsOverdue)
	require.NotNil(t, active[0].Book)
	require.NotNil(t, active[0].Book.Author)
	require.NotNil(t, active[0].User)

	history, err := f.svc.ListBorrows(ctx, ListBorrowsOptions{AdminID: f.admin.ID, Status: models.BorrowStatusReturned})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, returned.ID, history[0].ID)

	all, err := f.svc.ListBorrows(ctx, ListBorrowsOptions{AdminID: f.admin.ID, Status: models.BorrowStatusAll})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	overdue, err := f.svc.ListBorrows(ctx, ListBorrowsOptions{AdminID: f.admin.ID, Overdue: true})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, first.ID, overdue[0].ID)

	none, err := f.svc.ListBorrows(ctx, ListBorrowsOptions{AdminID: bob.ID, Status: models.BorrowStatusAll})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_ListUserActiveBorrows(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	carol := testutils.CreateUser(t, f.db, f.admin.ID, "carol")
	bob := testutils.CreateAdmin(t, f.db, "bob@x.com")

	borrow, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	borrows, err := f.svc.ListUserActiveBorrows(ctx, f.user.ID, f.admin.ID)
	require.NoError(t, err)
	require.Len(t, borrows, 1)
	assert.Equal(t, borrow.ID, borrows[0].ID)

	borrows, err = f.svc.ListUserActiveBorrows(ctx, carol.ID, f.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, borrows)

	_, err = f.svc.ListUserActiveBorrows(ctx, f.user.ID, bob.ID)
	assert.ErrorIs(t, err, errcodes.NotFound("User"))
}

func TestService_RetrieveBorrow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)
	bob := testutils.CreateAdmin(t, f.db, "bob@x.com")

	borrow, err := f.svc.BorrowBook(ctx, BorrowBookOptions{BookID: f.book.ID, UserID: f.user.ID, AdminID: f.admin.ID})
	require.NoError(t, err)
	_, err = f.svc.ReturnBook(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: f.admin.ID})
	require.NoError(t, err)

	got, err := f.svc.RetrieveBorrow(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: f.admin.ID})
	require.NoError(t, err)
	assert.NotNil(t, got.ReturnedAt)

	_, err = f.svc.RetrieveBorrow(ctx, RetrieveBorrowOptions{ID: borrow.ID, AdminID: bob.ID})
	assert.ErrorIs(t, err, errcodes.NotFound("Borrow"))
}
