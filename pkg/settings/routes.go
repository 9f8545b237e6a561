package settings

import (
	"github.com/labstack/echo/v4"
)

func RegisterRoutesWithGroup(g *echo.Group, settingsService *Service) {
	h := &handler{
		settingsService: settingsService,
	}

	g.GET("", h.list)
	g.PUT("/fine-rules", h.updateFineRules)
	g.PUT("/lending-periods", h.updateLendingPeriods)
}
