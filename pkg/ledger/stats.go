package ledger

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/models"
)

type Stats struct {
	TotalBooks      int     `json:"total_books"`
	TotalCopies     int     `json:"total_copies"`
	AvailableCopies int     `json:"available_copies"`
	TotalMembers    int     `json:"total_members"`
	ActiveLoans     int     `json:"active_loans"`
	OverdueLoans    int     `json:"overdue_loans"`
	UnpaidFines     float64 `json:"unpaid_fines"`
}

// Stats returns the dashboard counters.
func (svc *Service) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := svc.db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("COUNT(*)").
		ColumnExpr("COALESCE(SUM(b.total_copies), 0)").
		ColumnExpr("COALESCE(SUM(b.available_copies), 0)").
		Scan(ctx, &stats.TotalBooks, &stats.TotalCopies, &stats.AvailableCopies)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats.TotalMembers, err = svc.db.NewSelect().Model((*models.Member)(nil)).Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats.ActiveLoans, err = openLoans(svc.db.NewSelect().Model((*models.Transaction)(nil))).Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	stats.OverdueLoans, err = openLoans(svc.db.NewSelect().Model((*models.Transaction)(nil))).
		Where("t.due_date < ?", clock.Today(svc.clock)).
		Count(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = svc.db.NewSelect().
		Model((*models.Transaction)(nil)).
		// TOTAL is always a REAL, even over zero rows.
		ColumnExpr("TOTAL(t.fine_amount)").
		Where("t.fine_paid = ?", false).
		Where("t.fine_amount > 0").
		Scan(ctx, &stats.UnpaidFines)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	stats.UnpaidFines = roundCents(stats.UnpaidFines)

	return stats, nil
}
