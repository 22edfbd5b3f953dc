package binder

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type params struct {
	Hello string `json:"hello" mod:"trim" validate:"max=9"`
	Omit  string `json:"-"`
}

type dueParams struct {
	DueAt *string `json:"dueAt" validate:"omitempty,datetime"`
}

type secretParams struct {
	Secret string `json:"secret" validate:"required,maxbytes=8"`
}

type listParams struct {
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"min=1,max=100"`
	Status string `query:"status" json:"status" default:"active" validate:"oneof=active returned all"`
}

var (
	goodJSON             = `{"hello":" world "}`
	unknownFieldsErrJSON = `{"hello":"world","foo":"bar"}`
	typeErrJSON          = `{"hello":123}`
	validationErrJSON    = `{"hello":"0123456789"}`
)

func TestNew(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)
	assert.NotNil(t, b)

	t.Run("only allows application/json", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationXML)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "Unsupported Media Type")
	})

	t.Run("disallows unknown fields", func(tt *testing.T) {
		c := newContext(unknownFieldsErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `Unknown Parameter "foo"`)
	})

	t.Run("returns a good message for type errors", func(tt *testing.T) {
		c := newContext(typeErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), `"hello" should be of type string`)
	})

	t.Run("use mod tag to modify params", func(tt *testing.T) {
		c := newContext(goodJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		require.NoError(tt, err)
		assert.Equal(tt, "world", p.Hello)
	})

	t.Run("use validate tag to validate params", func(tt *testing.T) {
		c := newContext(validationErrJSON, echo.MIMEApplicationJSON)
		p := params{}
		err = b.Bind(&p, c)
		assert.Contains(tt, err.Error(), "length must be less than or equal to 9 characters")
	})
}

func TestBind_DatetimeValidator(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	for _, ok := range []string{`{"dueAt":"2030-01-31"}`, `{"dueAt":"2030-01-31T10:00:00Z"}`, `{}`} {
		p := dueParams{}
		assert.NoError(t, b.Bind(&p, newContext(ok, echo.MIMEApplicationJSON)), ok)
	}

	p := dueParams{}
	err = b.Bind(&p, newContext(`{"dueAt":"next tuesday"}`, echo.MIMEApplicationJSON))
	assert.Contains(t, err.Error(), `"dueAt" should be a date (YYYY-MM-DD) or an RFC 3339 timestamp`)
}

func TestBind_MaxBytesValidator(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	p := secretParams{}
	require.NoError(t, b.Bind(&p, newContext(`{"secret":"12345678"}`, echo.MIMEApplicationJSON)))

	// Three runes, nine bytes.
	p = secretParams{}
	err = b.Bind(&p, newContext(`{"secret":"€€€"}`, echo.MIMEApplicationJSON))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"secret" must be at most 8 bytes`)
}

func TestBind_Query(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	t.Run("applies defaults", func(tt *testing.T) {
		p := listParams{}
		require.NoError(tt, b.Bind(&p, newGetContext("/")))
		assert.Equal(tt, 50, p.Limit)
		assert.Equal(tt, "active", p.Status)
	})

	t.Run("decodes values", func(tt *testing.T) {
		p := listParams{}
		require.NoError(tt, b.Bind(&p, newGetContext("/?limit=5&status=all")))
		assert.Equal(tt, 5, p.Limit)
		assert.Equal(tt, "all", p.Status)
	})

	t.Run("rejects bad types", func(tt *testing.T) {
		p := listParams{}
		err := b.Bind(&p, newGetContext("/?limit=abc"))
		assert.Contains(tt, err.Error(), `"limit" should be of type int`)
	})

	t.Run("rejects unknown parameters", func(tt *testing.T) {
		p := listParams{}
		err := b.Bind(&p, newGetContext("/?color=red"))
		assert.Contains(tt, err.Error(), `Unknown Parameter "color"`)
	})

	t.Run("validates values", func(tt *testing.T) {
		p := listParams{}
		err := b.Bind(&p, newGetContext("/?status=lost"))
		assert.Contains(tt, err.Error(), `"status" must be one of the following`)
	})
}

func TestBind_EmptyBody(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	p := params{}
	err = b.Bind(&p, newContext("", echo.MIMEApplicationJSON))
	assert.Contains(t, err.Error(), "Request body can't be empty.")
}

func newGetContext(target string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.GET, target, nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func newContext(payload, mime string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(echo.POST, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, mime)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr)
}
