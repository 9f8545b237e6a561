package members

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/shishobooks/circulation/pkg/binder"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T, f *fixture) *echo.Echo {
	t.Helper()
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group("/members"), f.members, f.ledger)
	return e
}

func executeRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	return rr
}

func TestHandlers_MemberLifecycle(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	e := newTestEcho(t, f)

	rr := executeRequest(e, http.MethodPost, "/members", `{"name":"Ada Lovelace","member_code":"STU-001","member_type":"Student"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var member models.Member
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &member))
	assert.Equal(t, models.MemberTypeStudent, member.MemberType)
	path := "/members/" + strconv.Itoa(member.ID)

	rr = executeRequest(e, http.MethodPost, "/members", `{"name":"Other","member_code":"STU-001"}`)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = executeRequest(e, http.MethodPatch, path, `{"phone":"555-0100"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"phone":"555-0100"`)

	book := f.book(t, "Sula")
	_, err := f.ledger.Lend(t.Context(), ledger.LendOptions{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	rr = executeRequest(e, http.MethodGet, path+"/transactions?open=true", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"total":1`)

	rr = executeRequest(e, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = executeRequest(e, http.MethodGet, "/members/999/transactions", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlers_CreateMemberValidation(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	e := newTestEcho(t, f)

	rr := executeRequest(e, http.MethodPost, "/members", `{"name":"A","member_code":"STU-1"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = executeRequest(e, http.MethodPost, "/members", `{"name":"Ada","member_code":"STU-1","email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), "email")

	rr = executeRequest(e, http.MethodPost, "/members", `{"name":"Ada","member_code":"STU-1","member_type":"staff"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}
