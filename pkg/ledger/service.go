package ledger

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

// SettingsProvider supplies the fine rules and lending periods per member
// type.
type SettingsProvider interface {
	FineRules(ctx context.Context) (models.FineRules, error)
	LendingPeriods(ctx context.Context) (models.LendingPeriods, error)
}

type LendOptions struct {
	BookID   int
	MemberID int
	DueDate  *time.Time
	Notes    *string
}

type ListTransactionsOptions struct {
	Limit    *int
	Offset   *int
	BookID   *int
	MemberID *int
	Type     *string
	OpenOnly bool

	includeTotal bool
}

type Service struct {
	db       *bun.DB
	settings SettingsProvider
	clock    clock.Clock
}

func NewService(db *bun.DB, settings SettingsProvider, clk clock.Clock) *Service {
	return &Service{db, settings, clk}
}

// Lend opens a loan of one copy of a book to a member. The copy count check,
// the decrement and the transaction insert happen in one database
// transaction, so concurrent calls can never lend more copies than exist.
func (svc *Service) Lend(ctx context.Context, opts LendOptions) (*models.Transaction, error) {
	today := clock.Today(svc.clock)

	var dueDate time.Time
	if opts.DueDate != nil {
		dueDate = clock.Date(*opts.DueDate)
		if dueDate.Before(today) {
			return nil, errcodes.ValidationError("Due date can't be before the transaction date.")
		}
	}

	// Read before the transaction: the store has a single connection.
	periods, err := svc.settings.LendingPeriods(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	txn := &models.Transaction{}
	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		book := &models.Book{}
		err := tx.NewSelect().Model(book).Where("b.id = ?", opts.BookID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Book")
			}
			return errors.WithStack(err)
		}

		member := &models.Member{}
		err = tx.NewSelect().Model(member).Where("m.id = ?", opts.MemberID).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Member")
			}
			return errors.WithStack(err)
		}

		now := time.Now()
		res, err := tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("available_copies = available_copies - 1").
			Set("status = CASE WHEN available_copies - 1 = 0 THEN ? ELSE ? END", models.BookStatusLoaned, models.BookStatusAvailable).
			Set("updated_at = ?", now).
			Where("id = ?", book.ID).
			Where("available_copies > 0").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if affected == 0 {
			return errcodes.NotAvailable(book.Title)
		}

		if opts.DueDate == nil {
			dueDate = DueDate(periods, member.MemberType, today)
		}

		txn.CreatedAt = now
		txn.UpdatedAt = now
		txn.BookID = book.ID
		txn.MemberID = member.ID
		txn.Type = models.TransactionTypeLend
		txn.TransactionDate = today
		txn.DueDate = dueDate
		txn.Notes = opts.Notes

		_, err = tx.NewInsert().Model(txn).Returning("*").Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("book lent", logger.Data{
		"transaction_id": txn.ID,
		"book_id":        txn.BookID,
		"member_id":      txn.MemberID,
		"due_date":       txn.DueDate.Format(clock.DateLayout),
	})

	return svc.RetrieveTransaction(ctx, txn.ID)
}

// Return closes an open loan, computing its fine from today's date. The book
// always becomes available again, whatever other copies are still out.
func (svc *Service) Return(ctx context.Context, id int) (*models.Transaction, error) {
	rules, err := svc.settings.FineRules(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	today := clock.Today(svc.clock)

	err = svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txn := &models.Transaction{}
		err := tx.NewSelect().
			Model(txn).
			Relation("Member").
			Where("t.id = ?", id).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Transaction")
			}
			return errors.WithStack(err)
		}
		if !txn.IsOpen() {
			return errcodes.AlreadyReturned()
		}

		returnDate := today
		if returnDate.Before(txn.TransactionDate) {
			returnDate = txn.TransactionDate
		}
		fine := CalculateFine(fineRuleFor(rules, txn.Member.MemberType), txn.DueDate, returnDate)

		now := time.Now()
		res, err := tx.NewUpdate().
			Model((*models.Transaction)(nil)).
			Set("type = ?", models.TransactionTypeReturn).
			Set("return_date = ?", returnDate).
			Set("fine_amount = ?", fine).
			Set("updated_at = ?", now).
			Where("id = ?", txn.ID).
			Where("return_date IS NULL").
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return errors.WithStack(err)
		}
		if affected == 0 {
			return errcodes.AlreadyReturned()
		}

		_, err = tx.NewUpdate().
			Model((*models.Book)(nil)).
			Set("available_copies = available_copies + 1").
			Set("status = ?", models.BookStatusAvailable).
			Set("updated_at = ?", now).
			Where("id = ?", txn.BookID).
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	txn, err := svc.RetrieveTransaction(ctx, id)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("book returned", logger.Data{
		"transaction_id": txn.ID,
		"book_id":        txn.BookID,
		"fine_amount":    txn.FineAmount,
	})

	return txn, nil
}

// PayFine marks the fine on a closed loan as paid.
func (svc *Service) PayFine(ctx context.Context, id int) (*models.Transaction, error) {
	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txn := &models.Transaction{}
		err := tx.NewSelect().Model(txn).Where("t.id = ?", id).Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return errcodes.NotFound("Transaction")
			}
			return errors.WithStack(err)
		}

		switch {
		case txn.IsOpen():
			return errcodes.ValidationError("Fines can only be paid once the book is returned.")
		case txn.FineAmount == 0:
			return errcodes.ValidationError("Transaction has no fine.")
		case txn.FinePaid:
			return errcodes.Conflict("Fine has already been paid.")
		}

		txn.FinePaid = true
		txn.UpdatedAt = time.Now()
		_, err = tx.NewUpdate().
			Model(txn).
			Column("fine_paid", "updated_at").
			WherePK().
			Exec(ctx)
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, err
	}

	return svc.RetrieveTransaction(ctx, id)
}

func (svc *Service) RetrieveTransaction(ctx context.Context, id int) (*models.Transaction, error) {
	txn := &models.Transaction{}
	err := svc.db.NewSelect().
		Model(txn).
		Relation("Book").
		Relation("Member").
		Where("t.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Transaction")
		}
		return nil, errors.WithStack(err)
	}
	return txn, nil
}

func (svc *Service) ListTransactions(ctx context.Context, opts ListTransactionsOptions) ([]*models.Transaction, error) {
	t, _, err := svc.listTransactionsWithTotal(ctx, opts)
	return t, errors.WithStack(err)
}

func (svc *Service) ListTransactionsWithTotal(ctx context.Context, opts ListTransactionsOptions) ([]*models.Transaction, int, error) {
	opts.includeTotal = true
	return svc.listTransactionsWithTotal(ctx, opts)
}

func (svc *Service) listTransactionsWithTotal(ctx context.Context, opts ListTransactionsOptions) ([]*models.Transaction, int, error) {
	txns := []*models.Transaction{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&txns).
		Relation("Book").
		Relation("Member").
		Order("t.transaction_date DESC", "t.id DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.BookID != nil {
		q = q.Where("t.book_id = ?", *opts.BookID)
	}
	if opts.MemberID != nil {
		q = q.Where("t.member_id = ?", *opts.MemberID)
	}
	if opts.Type != nil {
		q = q.Where("t.type = ?", *opts.Type)
	}
	if opts.OpenOnly {
		q = openLoans(q)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return txns, total, nil
}

// ListActiveLoans returns every open loan, oldest due date first, tagged as
// on time or overdue against today's date.
func (svc *Service) ListActiveLoans(ctx context.Context) ([]*models.Transaction, error) {
	today := clock.Today(svc.clock)

	loans := []*models.Transaction{}
	err := openLoans(svc.db.NewSelect().Model(&loans)).
		Relation("Book").
		Relation("Member").
		Order("t.due_date ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, loan := range loans {
		annotate(loan, today)
	}
	return loans, nil
}

// ListOverdueLoans returns the open loans whose due date is before today,
// with the number of days each is overdue. Fines are not touched.
func (svc *Service) ListOverdueLoans(ctx context.Context) ([]*models.Transaction, error) {
	today := clock.Today(svc.clock)

	loans := []*models.Transaction{}
	err := openLoans(svc.db.NewSelect().Model(&loans)).
		Relation("Book").
		Relation("Member").
		Where("t.due_date < ?", today).
		Order("t.due_date ASC", "t.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for _, loan := range loans {
		annotate(loan, today)
	}
	return loans, nil
}

// BookHasOpenLoans reports whether any copy of the book is out.
func (svc *Service) BookHasOpenLoans(ctx context.Context, bookID int) (bool, error) {
	n, err := OpenLoansForBook(ctx, svc.db, bookID)
	return n > 0, err
}

// MemberHasOpenLoans reports whether the member has any book out.
func (svc *Service) MemberHasOpenLoans(ctx context.Context, memberID int) (bool, error) {
	n, err := OpenLoansForMember(ctx, svc.db, memberID)
	return n > 0, err
}

// OpenLoansForBook counts open loans of a book. It takes a bun.IDB so delete
// guards can run it inside their own transaction.
func OpenLoansForBook(ctx context.Context, db bun.IDB, bookID int) (int, error) {
	n, err := openLoans(db.NewSelect().Model((*models.Transaction)(nil))).
		Where("t.book_id = ?", bookID).
		Count(ctx)
	return n, errors.WithStack(err)
}

// OpenLoansForMember counts open loans held by a member.
func OpenLoansForMember(ctx context.Context, db bun.IDB, memberID int) (int, error) {
	n, err := openLoans(db.NewSelect().Model((*models.Transaction)(nil))).
		Where("t.member_id = ?", memberID).
		Count(ctx)
	return n, errors.WithStack(err)
}

func openLoans(q *bun.SelectQuery) *bun.SelectQuery {
	return q.
		Where("t.type = ?", models.TransactionTypeLend).
		Where("t.return_date IS NULL")
}

func annotate(loan *models.Transaction, today time.Time) {
	if loan.DueDate.Before(today) {
		days := clock.DaysBetween(loan.DueDate, today)
		loan.LoanStatus = models.LoanStatusOverdue
		loan.DaysOverdue = &days
		return
	}
	loan.LoanStatus = models.LoanStatusOnTime
}
