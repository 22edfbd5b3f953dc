package authors

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
	g := e.Group("/authors", auth.NewMiddleware(authService).Authenticate)
	RegisterRoutesWithGroup(g, db)

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

func TestHandler_CRUD(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := ts.token(t, testutils.CreateAdmin(t, ts.db, "alice@x.com"))

	rr := ts.do(http.MethodPost, "/authors", `{"name":"  Jane Austen ","bio":"Novelist"}`, token)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created models.Author
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, "Jane Austen", created.Name)
	require.NotNil(t, created.Bio)
	assert.Equal(t, "Novelist", *created.Bio)

	rr = ts.do(http.MethodGet, "/authors/"+created.ID, "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"bookCount":0`)

	rr = ts.do(http.MethodPatch, "/authors/"+created.ID, `{"name":"J. Austen"}`, token)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"name":"J. Austen"`)
	assert.Contains(t, rr.Body.String(), `"bio":"Novelist"`)

	rr = ts.do(http.MethodGet, "/authors?limit=10", "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	var list struct {
		Authors []models.Author `json:"authors"`
		Total   int             `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Authors, 1)

	rr = ts.do(http.MethodDelete, "/authors/"+created.ID, "", token)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = ts.do(http.MethodGet, "/authors/"+created.ID, "", token)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandler_RequiresAuthentication(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/authors", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestHandler_OtherAdminSeesNotFound(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	alice := testutils.CreateAdmin(t, ts.db, "alice@x.com")
	bob := testutils.CreateAdmin(t, ts.db, "bob@x.com")
	author := testutils.CreateAuthor(t, ts.db, alice.ID, "Private")
	bobToken := ts.token(t, bob)

	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/authors/"+author.ID, "", bobToken).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodPatch, "/authors/"+author.ID, `{"name":"X"}`, bobToken).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodDelete, "/authors/"+author.ID, "", bobToken).Code)
	assert.Equal(t, http.StatusNotFound, ts.do(http.MethodGet, "/authors/"+author.ID+"/books", "", bobToken).Code)

	rr := ts.do(http.MethodGet, "/authors", "", bobToken)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":0`)
}

func TestHandler_Validation(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	token := ts.token(t, testutils.CreateAdmin(t, ts.db, "alice@x.com"))

	rr := ts.do(http.MethodPost, "/authors", `{"bio":"no name"}`, token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"name\" is required`)

	rr = ts.do(http.MethodGet, "/authors?limit=500", "", token)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestHandler_Books(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t)
	admin := testutils.CreateAdmin(t, ts.db, "alice@x.com")
	token := ts.token(t, admin)
	author := testutils.CreateAuthor(t, ts.db, admin.ID, "Author")
	testutils.CreateBook(t, ts.db, admin.ID, author.ID, "Only Book")

	rr := ts.do(http.MethodGet, "/authors/"+author.ID+"/books", "", token)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"title":"Only Book"`)
	assert.Contains(t, rr.Body.String(), `"total":1`)
}
