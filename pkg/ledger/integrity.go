package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

// IntegrityIssue describes a book whose cached counters disagree with its
// open loans.
type IntegrityIssue struct {
	BookID            int    `bun:"book_id" json:"book_id"`
	Title             string `bun:"title" json:"title"`
	TotalCopies       int    `bun:"total_copies" json:"total_copies"`
	AvailableCopies   int    `bun:"available_copies" json:"available_copies"`
	Status            string `bun:"status" json:"status"`
	OpenLoans         int    `bun:"open_loans" json:"open_loans"`
	ExpectedAvailable int    `bun:"-" json:"expected_available"`
	ExpectedStatus    string `bun:"-" json:"expected_status"`
}

// CheckIntegrity scans every book and reports those whose available copies or
// status don't match total copies minus open loans.
func (svc *Service) CheckIntegrity(ctx context.Context) ([]*IntegrityIssue, error) {
	return findIssues(ctx, svc.db)
}

// RepairIntegrity recomputes the counters of every inconsistent book from its
// open loans and returns the issues it fixed.
func (svc *Service) RepairIntegrity(ctx context.Context) ([]*IntegrityIssue, error) {
	var issues []*IntegrityIssue
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var err error
		issues, err = findIssues(ctx, tx)
		if err != nil {
			return err
		}

		now := time.Now()
		for _, issue := range issues {
			_, err := tx.NewUpdate().
				Model((*models.Book)(nil)).
				Set("available_copies = ?", issue.ExpectedAvailable).
				Set("status = ?", issue.ExpectedStatus).
				Set("updated_at = ?", now).
				Where("id = ?", issue.BookID).
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx)
	for _, issue := range issues {
		if issue.OpenLoans > issue.TotalCopies {
			log.Warn("book has more open loans than copies", logger.Data{"book_id": issue.BookID, "open_loans": issue.OpenLoans})
		}
	}
	log.Info("ledger integrity repaired", logger.Data{"books": len(issues)})

	return issues, nil
}

func findIssues(ctx context.Context, db bun.IDB) ([]*IntegrityIssue, error) {
	rows := []*IntegrityIssue{}
	err := db.NewSelect().
		Model((*models.Book)(nil)).
		ColumnExpr("b.id AS book_id").
		ColumnExpr("b.title, b.total_copies, b.available_copies, b.status").
		ColumnExpr("(SELECT COUNT(*) FROM transactions AS t WHERE t.book_id = b.id AND t.type = ? AND t.return_date IS NULL) AS open_loans", models.TransactionTypeLend).
		Order("b.id ASC").
		Scan(ctx, &rows)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	issues := []*IntegrityIssue{}
	for _, row := range rows {
		expected := row.TotalCopies - row.OpenLoans
		if expected < 0 {
			expected = 0
		}
		row.ExpectedAvailable = expected
		row.ExpectedStatus = models.StatusForAvailable(expected)
		if row.Status == models.BookStatusReserved {
			row.ExpectedStatus = row.Status
		}

		if row.AvailableCopies != row.ExpectedAvailable || row.Status != row.ExpectedStatus {
			issues = append(issues, row)
		}
	}
	return issues, nil
}
