package members

import (
	"github.com/labstack/echo/v4"
	"github.com/shishobooks/circulation/pkg/ledger"
)

func RegisterRoutesWithGroup(g *echo.Group, memberService *Service, ledgerService *ledger.Service) {
	h := &handler{
		memberService: memberService,
		ledgerService: ledgerService,
	}

	g.GET("", h.list)
	g.POST("", h.create)
	g.GET("/:id", h.retrieve)
	g.PATCH("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.GET("/:id/transactions", h.transactions)
}
