package ledger

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
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEcho(t *testing.T, svc *Service) *echo.Echo {
	t.Helper()
	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle
	RegisterRoutesWithGroup(e.Group(""), svc)
	return e
}

func doRequest(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
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

func errorCode(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Error.Code
}

func TestHandlers_LendReturnFlow(t *testing.T) {
	t.Parallel()
	svc, db, clk := newTestService(t)
	e := newTestEcho(t, svc)

	book := createBook(t, db, "Dune", 1)
	member := createMember(t, db, "STU-001", models.MemberTypeStudent)
	other := createMember(t, db, "STU-002", models.MemberTypeStudent)

	rr := doRequest(e, http.MethodPost, "/transactions/lend",
		`{"book_id":`+strconv.Itoa(book.ID)+`,"member_id":`+strconv.Itoa(member.ID)+`,"due_date":"2024-01-15"}`)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var txn models.Transaction
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &txn))
	assert.Equal(t, models.TransactionTypeLend, txn.Type)
	assert.Equal(t, "2024-01-15", txn.DueDate.UTC().Format("2006-01-02"))

	rr = doRequest(e, http.MethodPost, "/transactions/lend",
		`{"book_id":`+strconv.Itoa(book.ID)+`,"member_id":`+strconv.Itoa(other.ID)+`}`)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "not_available", errorCode(t, rr))

	rr = doRequest(e, http.MethodGet, "/loans/active", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"loan_status":"on_time"`)

	clk.Advance(20)
	rr = doRequest(e, http.MethodGet, "/loans/overdue", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"days_overdue":6`)

	rr = doRequest(e, http.MethodPost, "/transactions/"+strconv.Itoa(txn.ID)+"/return", "")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &txn))
	assert.InDelta(t, 30.0, txn.FineAmount, 0.001)

	rr = doRequest(e, http.MethodPost, "/transactions/"+strconv.Itoa(txn.ID)+"/return", "")
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "already_returned", errorCode(t, rr))

	rr = doRequest(e, http.MethodPost, "/transactions/"+strconv.Itoa(txn.ID)+"/pay-fine", "")
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(e, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"unpaid_fines":0`)
}

func TestHandlers_LendValidation(t *testing.T) {
	t.Parallel()
	svc, db, _ := newTestService(t)
	e := newTestEcho(t, svc)

	member := createMember(t, db, "STU-001", models.MemberTypeStudent)

	rr := doRequest(e, http.MethodPost, "/transactions/lend", `{"member_id":1}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Contains(t, rr.Body.String(), `\"book_id\" is required`)

	rr = doRequest(e, http.MethodPost, "/transactions/lend", `{"book_id":1,"member_id":1,"due_date":"15/01/2024"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(e, http.MethodPost, "/transactions/lend", `{"book_id":999,"member_id":`+strconv.Itoa(member.ID)+`}`)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", errorCode(t, rr))

	rr = doRequest(e, http.MethodPost, "/transactions/abc/return", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHandlers_Integrity(t *testing.T) {
	t.Parallel()
	svc, db, _ := newTestService(t)
	e := newTestEcho(t, svc)

	book := createBook(t, db, "Dune", 2)
	_, err := db.NewUpdate().Model((*models.Book)(nil)).Set("available_copies = 1").Where("id = ?", book.ID).Exec(t.Context())
	require.NoError(t, err)

	rr := doRequest(e, http.MethodGet, "/ledger/integrity", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"expected_available":2`)

	rr = doRequest(e, http.MethodPost, "/ledger/integrity/repair", "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(e, http.MethodGet, "/ledger/integrity", "")
	assert.Contains(t, rr.Body.String(), `"issues":[]`)
}
