package testutils

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/auth"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

// TestPIN is the PIN createSession configures when none is set.
const TestPIN = "0000"

type handler struct {
	db          *bun.DB
	authService *auth.Service
}

type createSessionResponse struct {
	Token string `json:"token"`
}

// createSession configures the test PIN if needed and returns a bearer token.
// POST /test/session.
func (h *handler) createSession(c echo.Context) error {
	ctx := c.Request().Context()

	if err := h.authService.ResetPIN(ctx, TestPIN); err != nil {
		return errors.Wrap(err, "failed to set test pin")
	}

	token, err := h.authService.Login(ctx, TestPIN)
	if err != nil {
		return errors.Wrap(err, "failed to log in")
	}

	return c.JSON(http.StatusCreated, createSessionResponse{Token: token})
}

type deleteAllDataResponse struct {
	Transactions int `json:"transactions"`
	Books        int `json:"books"`
	Members      int `json:"members"`
	Jobs         int `json:"jobs"`
}

// deleteAllData wipes circulation data and the PIN. Settings other than the
// PIN are left alone.
// DELETE /test/data.
func (h *handler) deleteAllData(c echo.Context) error {
	ctx := c.Request().Context()
	resp := deleteAllDataResponse{}

	err := h.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		steps := []struct {
			model interface{}
			count *int
		}{
			{(*models.Transaction)(nil), &resp.Transactions},
			{(*models.Book)(nil), &resp.Books},
			{(*models.Member)(nil), &resp.Members},
			{(*models.JobLog)(nil), nil},
			{(*models.Job)(nil), &resp.Jobs},
		}
		for _, step := range steps {
			result, err := tx.NewDelete().Model(step.model).Where("1=1").Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
			if step.count != nil {
				n, _ := result.RowsAffected()
				*step.count = int(n)
			}
		}
		_, err := tx.NewDelete().
			Model((*models.Setting)(nil)).
			Where("key = ?", models.SettingAuthPINHash).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete data")
	}

	return c.JSON(http.StatusOK, resp)
}
