package ledger

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
)

type handler struct {
	ledgerService *Service
}

type loansResponse struct {
	Loans []*models.Transaction `json:"loans"`
	Total int                   `json:"total"`
}

func (h *handler) lend(c echo.Context) error {
	ctx := c.Request().Context()

	params := LendPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	opts := LendOptions{
		BookID:   params.BookID,
		MemberID: params.MemberID,
		Notes:    params.Notes,
	}
	if params.DueDate != "" {
		due, err := clock.ParseDate(params.DueDate)
		if err != nil {
			return errcodes.ValidationError(`"due_date" is not a valid date`)
		}
		opts.DueDate = &due
	}

	txn, err := h.ledgerService.Lend(ctx, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, txn))
}

func (h *handler) returnBook(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Transaction")
	}

	txn, err := h.ledgerService.Return(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, txn))
}

func (h *handler) payFine(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Transaction")
	}

	txn, err := h.ledgerService.PayFine(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, txn))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Transaction")
	}

	txn, err := h.ledgerService.RetrieveTransaction(ctx, id)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, txn))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListTransactionsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	txns, total, err := h.ledgerService.ListTransactionsWithTotal(ctx, ListTransactionsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		BookID:   params.BookID,
		MemberID: params.MemberID,
		Type:     params.Type,
		OpenOnly: params.Open,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Transactions []*models.Transaction `json:"transactions"`
		Total        int                   `json:"total"`
	}{txns, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) activeLoans(c echo.Context) error {
	loans, err := h.ledgerService.ListActiveLoans(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, loansResponse{loans, len(loans)}))
}

func (h *handler) overdueLoans(c echo.Context) error {
	loans, err := h.ledgerService.ListOverdueLoans(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, loansResponse{loans, len(loans)}))
}

func (h *handler) dashboard(c echo.Context) error {
	stats, err := h.ledgerService.Stats(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(c.JSON(http.StatusOK, stats))
}

func (h *handler) checkIntegrity(c echo.Context) error {
	issues, err := h.ledgerService.CheckIntegrity(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Issues    []*IntegrityIssue `json:"issues"`
		CheckedAt time.Time         `json:"checked_at"`
	}{issues, time.Now()}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) repairIntegrity(c echo.Context) error {
	repaired, err := h.ledgerService.RepairIntegrity(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Repaired []*IntegrityIssue `json:"repaired"`
	}{repaired}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}
