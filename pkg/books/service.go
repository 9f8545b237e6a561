package books

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/binder"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/database"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/uptrace/bun"
)

type RetrieveBookOptions struct {
	ID   *int
	ISBN *string
}

type ListBooksOptions struct {
	Limit  *int
	Offset *int
	Search *string
	Genre  *string
	Status *string

	includeTotal bool
}

type UpdateBookOptions struct {
	Columns []string
}

type Service struct {
	db    *bun.DB
	clock clock.Clock
}

func NewService(db *bun.DB, clk clock.Clock) *Service {
	return &Service{db, clk}
}

// CreateBook inserts a new book with every copy available.
func (svc *Service) CreateBook(ctx context.Context, book *models.Book) error {
	normalize(book)
	book.AvailableCopies = book.TotalCopies
	book.Status = models.BookStatusAvailable

	if err := svc.validate(book); err != nil {
		return err
	}

	now := time.Now()
	if book.CreatedAt.IsZero() {
		book.CreatedAt = now
	}
	book.UpdatedAt = book.CreatedAt

	_, err := svc.db.
		NewInsert().
		Model(book).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return translateError(err)
	}

	return nil
}

func (svc *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*models.Book, error) {
	book := &models.Book{}

	q := svc.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.ISBN != nil {
		q = q.Where("b.isbn = ?", binder.NormalizeISBN(*opts.ISBN))
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

func (svc *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*models.Book, error) {
	b, _, err := svc.listBooksWithTotal(ctx, opts)
	return b, errors.WithStack(err)
}

func (svc *Service) ListBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	opts.includeTotal = true
	return svc.listBooksWithTotal(ctx, opts)
}

func (svc *Service) listBooksWithTotal(ctx context.Context, opts ListBooksOptions) ([]*models.Book, int, error) {
	books := []*models.Book{}
	var total int
	var err error

	q := svc.db.
		NewSelect().
		Model(&books).
		Order("b.title ASC", "b.id ASC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Search != nil && *opts.Search != "" {
		like := "%" + *opts.Search + "%"
		q = q.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("b.title LIKE ?", like).
				WhereOr("b.authors LIKE ?", like).
				WhereOr("b.isbn LIKE ?", like)
		})
	}
	if opts.Genre != nil {
		q = q.Where("EXISTS (SELECT 1 FROM json_each(b.genres) WHERE json_each.value = ? COLLATE NOCASE)", *opts.Genre)
	}
	if opts.Status != nil {
		q = q.Where("b.status = ?", *opts.Status)
	}

	if opts.includeTotal {
		total, err = q.ScanAndCount(ctx)
	} else {
		err = q.Scan(ctx)
	}
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return books, total, nil
}

// UpdateBook writes the given columns. Changing total_copies recomputes the
// available copies from the book's open loans, so the count can't drop below
// what is currently lent out.
func (svc *Service) UpdateBook(ctx context.Context, book *models.Book, opts UpdateBookOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	normalize(book)
	if err := svc.validate(book); err != nil {
		return err
	}

	err := svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		columns := append([]string{}, opts.Columns...)
		if hasColumn(columns, "total_copies") {
			open, err := ledger.OpenLoansForBook(ctx, tx, book.ID)
			if err != nil {
				return err
			}
			if book.TotalCopies < open {
				return errcodes.ValidationError(fmt.Sprintf("Total copies can't be less than the %d copies currently on loan.", open))
			}
			book.AvailableCopies = book.TotalCopies - open
			if book.Status != models.BookStatusReserved {
				book.Status = models.StatusForAvailable(book.AvailableCopies)
			}
			columns = append(columns, "available_copies", "status")
		}

		book.UpdatedAt = time.Now()
		columns = append(columns, "updated_at")

		res, err := tx.
			NewUpdate().
			Model(book).
			Column(columns...).
			WherePK().
			Exec(ctx)
		if err != nil {
			return translateError(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return errcodes.NotFound("Book")
		}

		return nil
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// DeleteBook removes a book and its closed loan history. A book with any copy
// still out can't be deleted.
func (svc *Service) DeleteBook(ctx context.Context, id int) error {
	return svc.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().Model((*models.Book)(nil)).Where("b.id = ?", id).Exists(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if !exists {
			return errcodes.NotFound("Book")
		}

		open, err := ledger.OpenLoansForBook(ctx, tx, id)
		if err != nil {
			return err
		}
		if open > 0 {
			return errcodes.Conflict("Book can't be deleted while it has active loans.")
		}

		_, err = tx.NewDelete().Model((*models.Transaction)(nil)).Where("book_id = ?", id).Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = tx.NewDelete().Model((*models.Book)(nil)).Where("id = ?", id).Exec(ctx)
		return errors.WithStack(err)
	})
}

func (svc *Service) validate(book *models.Book) error {
	switch {
	case strings.TrimSpace(book.Title) == "":
		return errcodes.ValidationError("Title is required.")
	case len(book.Authors) == 0:
		return errcodes.ValidationError("At least one author is required.")
	case book.TotalCopies < 1:
		return errcodes.ValidationError("Total copies must be at least 1.")
	}
	for _, author := range book.Authors {
		if strings.TrimSpace(author) == "" {
			return errcodes.ValidationError("Author names can't be blank.")
		}
	}
	if book.PublicationYear != nil {
		year := *book.PublicationYear
		current := svc.clock.Now().Year()
		if year < 1000 || year > current {
			return errcodes.ValidationError(fmt.Sprintf("Publication year must be between 1000 and %d.", current))
		}
	}
	if book.ISBN != nil && !binder.ValidISBN(*book.ISBN) {
		return errcodes.ValidationError("ISBN is not a valid ISBN-10 or ISBN-13.")
	}
	if book.Language != nil && len(*book.Language) != 2 {
		return errcodes.ValidationError("Language must be a two-letter code.")
	}
	return nil
}

func normalize(book *models.Book) {
	book.Title = strings.TrimSpace(book.Title)
	if book.Authors == nil {
		book.Authors = []string{}
	}
	if book.Genres == nil {
		book.Genres = []string{}
	}
	if book.Tags == nil {
		book.Tags = []string{}
	}
	if book.ISBN != nil {
		isbn := binder.NormalizeISBN(*book.ISBN)
		if isbn == "" {
			book.ISBN = nil
		} else {
			book.ISBN = &isbn
		}
	}
	if book.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*book.Language))
		if lang == "" {
			book.Language = nil
		} else {
			book.Language = &lang
		}
	}
}

func translateError(err error) error {
	if _, column, ok := database.UniqueViolation(err); ok && column == "isbn" {
		return errcodes.Conflict("A book with this ISBN already exists.")
	}
	if _, ok := database.CheckViolation(err); ok {
		return errcodes.ValidationError("Book failed a data check.")
	}
	return errors.WithStack(err)
}

func hasColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name {
			return true
		}
	}
	return false
}
