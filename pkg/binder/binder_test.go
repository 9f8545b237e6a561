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

	t.Run("only allows application/json bodies", func(tt *testing.T) {
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

type listParams struct {
	Limit  int    `query:"limit" json:"limit" default:"20" validate:"min=1,max=100"`
	Search string `query:"search" json:"search" mod:"trim"`
}

func TestBind_Query(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	t.Run("decodes and defaults query params", func(tt *testing.T) {
		p := listParams{}
		require.NoError(tt, b.Bind(&p, newQueryContext("/?search=+dune+")))
		assert.Equal(tt, 20, p.Limit)
		assert.Equal(tt, "dune", p.Search)
	})

	t.Run("rejects unknown query params", func(tt *testing.T) {
		p := listParams{}
		err := b.Bind(&p, newQueryContext("/?sort=title"))
		assert.Contains(tt, err.Error(), `Unknown Parameter "sort"`)
	})

	t.Run("reports conversion errors", func(tt *testing.T) {
		p := listParams{}
		err := b.Bind(&p, newQueryContext("/?limit=ten"))
		assert.Contains(tt, err.Error(), `"limit" should be of type int`)
	})

	t.Run("validates query params", func(tt *testing.T) {
		p := listParams{}
		err := b.Bind(&p, newQueryContext("/?limit=500"))
		assert.Contains(tt, err.Error(), `"limit" must be less than or equal to 100`)
	})
}

func TestBind_EmptyBody(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	p := params{}
	err = b.Bind(&p, newContext("", echo.MIMEApplicationJSON))
	require.Error(t, err)

	c := newContext("", echo.MIMEApplicationJSON)
	c.Set("allow_empty_body", true)
	assert.NoError(t, b.Bind(&p, c))
}

func newQueryContext(target string) echo.Context {
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

type bookParams struct {
	ISBN     string `json:"isbn" validate:"isbn"`
	Language string `json:"language" mod:"trim,lcase" validate:"lang"`
	Due      string `json:"due_date" validate:"date"`
}

func TestBind_DomainValidators(t *testing.T) {
	t.Parallel()
	b, err := New()
	require.NoError(t, err)

	t.Run("accepts a hyphenated ISBN-13 and lowercases the language", func(tt *testing.T) {
		c := newContext(`{"isbn":"978-0-306-40615-7","language":" EN ","due_date":"2024-02-29"}`, echo.MIMEApplicationJSON)
		p := bookParams{}
		require.NoError(tt, b.Bind(&p, c))
		assert.Equal(tt, "en", p.Language)
	})

	t.Run("rejects a bad check digit", func(tt *testing.T) {
		c := newContext(`{"isbn":"9780306406158"}`, echo.MIMEApplicationJSON)
		p := bookParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), `"isbn" is not a valid ISBN-10 or ISBN-13`)
	})

	t.Run("rejects a three-letter language", func(tt *testing.T) {
		c := newContext(`{"language":"eng"}`, echo.MIMEApplicationJSON)
		p := bookParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "two-letter language code")
	})

	t.Run("rejects a malformed date", func(tt *testing.T) {
		c := newContext(`{"due_date":"2024-13-01"}`, echo.MIMEApplicationJSON)
		p := bookParams{}
		err := b.Bind(&p, c)
		require.Error(tt, err)
		assert.Contains(tt, err.Error(), "YYYY-MM-DD")
	})
}

func TestValidISBN(t *testing.T) {
	cases := map[string]bool{
		"0-306-40615-2":     true,
		"0306406152":        true,
		"080442957X":        true,
		"978-0-306-40615-7": true,
		"9780306406157":     true,
		"0306406153":        false,
		"9780306406158":     false,
		"12345":             false,
		"97803064061X7":     false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidISBN(in), in)
	}
	assert.Equal(t, "080442957X", NormalizeISBN(" 0-8044-2957-x "))
}

func TestValidEmail(t *testing.T) {
	cases := map[string]bool{
		"ada@example.com":         true,
		"a.lovelace+desk@lib.org": true,
		"not-an-email":            false,
		"Ada <ada@example.com>":   false,
		"ada@":                    false,
		"":                        false,
	}
	for in, want := range cases {
		assert.Equal(t, want, ValidEmail(in), in)
	}
}

func TestValidEmail_MatchesPayloadRule(t *testing.T) {
	b, err := New()
	require.NoError(t, err)

	type memberParams struct {
		Email string `json:"email" validate:"email"`
	}
	for _, in := range []string{"ada@example.com", "Ada <ada@example.com>"} {
		c := newContext(`{"email":"`+in+`"}`, echo.MIMEApplicationJSON)
		bindErr := b.Bind(&memberParams{}, c)
		assert.Equal(t, ValidEmail(in), bindErr == nil, in)
	}
}
