package ledger

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutesWithGroup registers the circulation routes on g. The
// transactions, loans, dashboard and ledger paths all hang off it, so g is
// usually the root group and m carries per-route middleware such as auth.
func RegisterRoutesWithGroup(g *echo.Group, ledgerService *Service, m ...echo.MiddlewareFunc) {
	h := &handler{
		ledgerService: ledgerService,
	}

	g.POST("/transactions/lend", h.lend, m...)
	g.POST("/transactions/:id/return", h.returnBook, m...)
	g.POST("/transactions/:id/pay-fine", h.payFine, m...)
	g.GET("/transactions", h.list, m...)
	g.GET("/transactions/:id", h.retrieve, m...)

	g.GET("/loans/active", h.activeLoans, m...)
	g.GET("/loans/overdue", h.overdueLoans, m...)

	g.GET("/dashboard", h.dashboard, m...)

	g.GET("/ledger/integrity", h.checkIntegrity, m...)
	g.POST("/ledger/integrity/repair", h.repairIntegrity, m...)
}
