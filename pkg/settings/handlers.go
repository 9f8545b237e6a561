package settings

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/models"
)

type handler struct {
	settingsService *Service
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	rules, err := h.settingsService.FineRules(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	periods, err := h.settingsService.LendingPeriods(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, SettingsResponse{FineRules: rules, LendingPeriods: periods})
}

func (h *handler) updateFineRules(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateFineRulesPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	rules, err := h.settingsService.UpdateFineRules(ctx, params.rules())
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, rules)
}

func (h *handler) updateLendingPeriods(c echo.Context) error {
	ctx := c.Request().Context()

	params := UpdateLendingPeriodsPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	periods, err := h.settingsService.UpdateLendingPeriods(ctx, models.LendingPeriods{
		models.MemberTypeStudent: params.Student,
		models.MemberTypeFaculty: params.Faculty,
		models.MemberTypePublic:  params.Public,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, periods)
}
