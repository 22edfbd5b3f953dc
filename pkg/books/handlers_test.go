package books

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shelfdesk/shelfdesk/pkg/auth"
	"github.com/shelfdesk/shelfdesk/pkg/binder"
	"github.com/shelfdesk/shelfdesk/pkg/config"
	"github.com/shelfdesk/shelfdesk/pkg/errcodes"
	"github.com/shelfdesk/shelfdesk/pkg/models"
	"github.com/shelfdesk/shelfdesk/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

type testServer struct {
	e     *echo.Echo
	db    *bun.DB
	authn *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db := testutils.NewTestDB(t)
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	e.Use(logger.Middleware())

	authService := auth.NewService(db, config.NewForTest())
	RegisterRoutesWithGroup(e.Group("/books", auth.NewMiddleware(authService).Authenticate), db)

	return &testServer{e: e, db: db, authn: authService}
}

func (ts *testServer) token(t *testing.T, admin *models.Admin) string {
	t.Helper()
	token, err := ts.authn.GenerateToken(admin)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	ts.e.ServeHTTP(rr, req)
	return rr
}

func TestHandler_CreateEmbedsAuthor(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := testutils.CreateAdmin(t, ts.db, "alice@x.com")
	token := ts.token(t, admin)
	author := testutils.CreateAuthor(t, ts.db, admin.ID, "George Orwell")

	body := `{"title":"1984","authorId":"` + author.ID + `","isbn":"9780451524935","publishedAt":"1949-06-08"}`
	rr := ts.do(http.MethodPost, "/books", body, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var book models.Book
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &book))
	assert.Equal(t, "1984", book.Title)
	assert.False(t, book.IsBorrowed)
	require.NotNil(t, book.Author)
	assert.Equal(t, "George Orwell", book.Author.Name)
	require.NotNil(t, book.PublishedAt)
	assert.Equal(t, "1949-06-08", book.PublishedAt.Format("2006-01-02"))

	rr = ts.do(http.MethodGet, "/books/"+book.ID, "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"name":"George Orwell"`)
}

func TestHandler_Create_Validation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := testutils.CreateAdmin(t, ts.db, "alice@x.com")
	token := ts.token(t, admin)
	author := testutils.CreateAuthor(t, ts.db, admin.ID, "Author")

	rr := ts.do(http.MethodPost, "/books", `{"authorId":"`+author.ID+`"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(http.MethodPost, "/books", `{"title":"T","authorId":"`+author.ID+`","isBorrowed":true}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `Unknown Parameter \"isBorrowed\"`)

	rr = ts.do(http.MethodPost, "/books", `{"title":"T","authorId":"`+author.ID+`","publishedAt":"June 1949"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(http.MethodPost, "/books", `{"title":"T","authorId":"nope"}`, token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, rr.Body.String(), "Author not found.")
}

func TestHandler_UpdateAndFilters(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := testutils.CreateAdmin(t, ts.db, "alice@x.com")
	token := ts.token(t, admin)
	author := testutils.CreateAuthor(t, ts.db, admin.ID, "Author")
	book := testutils.CreateBook(t, ts.db, admin.ID, author.ID, "Draft")

	rr := ts.do(http.MethodPatch, "/books/"+book.ID, `{"title":"Final","description":"About things"}`, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"title":"Final"`)
	assert.Contains(t, rr.Body.String(), `"description":"About things"`)

	rr = ts.do(http.MethodPatch, "/books/"+book.ID, `{"description":""}`, token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"description":null`)

	rr = ts.do(http.MethodPatch, "/books/"+book.ID, `{"title":""}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = ts.do(http.MethodGet, "/books?isBorrowed=false&authorId="+author.ID, "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)

	rr = ts.do(http.MethodGet, "/books?isBorrowed=true", "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":0`)
}

func TestHandler_OtherAdminSeesNotFound(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	alice := testutils.CreateAdmin(t, ts.db, "alice@x.com")
	bob := testutils.CreateAdmin(t, ts.db, "bob@x.com")
	book := testutils.CreateBook(t, ts.db, alice.ID, testutils.CreateAuthor(t, ts.db, alice.ID, "A").ID, "Mine")
	bobToken := ts.token(t, bob)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/books/"+book.ID, "", bobToken).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPatch, "/books/"+book.ID, `{"title":"X"}`, bobToken).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/books/"+book.ID, "", bobToken).Code)

	rr := ts.do(http.MethodGet, "/books/"+book.ID, "", ts.token(t, alice))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"title":"Mine"`)
}
