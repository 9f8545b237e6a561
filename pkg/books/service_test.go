package books

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/circulation/pkg/clock"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/ledger"
	"github.com/shishobooks/circulation/pkg/migrations"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/shishobooks/circulation/pkg/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type fixture struct {
	db     *bun.DB
	books  *Service
	ledger *ledger.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	clk := clock.NewFixed(time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	return &fixture{
		db:     db,
		books:  NewService(db, clk),
		ledger: ledger.NewService(db, settings.NewService(db), clk),
	}
}

func (f *fixture) member(t *testing.T, code string) *models.Member {
	t.Helper()
	m := &models.Member{Name: "Reader " + code, MemberCode: code, MemberType: models.MemberTypeStudent}
	_, err := f.db.NewInsert().Model(m).Returning("*").Exec(context.Background())
	require.NoError(t, err)
	return m
}

func newBook(title string, copies int) *models.Book {
	return &models.Book{
		Title:       title,
		Authors:     []string{"Ursula K. Le Guin"},
		TotalCopies: copies,
	}
}

func TestCreateBook(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	book := newBook("  The Dispossessed ", 3)
	book.ISBN = pointerutil.String("978-0-06-051275-0")
	book.Language = pointerutil.String("EN")
	book.Genres = []string{"science fiction"}
	require.NoError(t, f.books.CreateBook(ctx, book))

	assert.NotZero(t, book.ID)
	assert.Equal(t, "The Dispossessed", book.Title)
	assert.Equal(t, 3, book.AvailableCopies)
	assert.Equal(t, models.BookStatusAvailable, book.Status)
	assert.Equal(t, "9780060512750", *book.ISBN)
	assert.Equal(t, "en", *book.Language)

	got, err := f.books.RetrieveBook(ctx, RetrieveBookOptions{ISBN: pointerutil.String("978-0060512750")})
	require.NoError(t, err)
	assert.Equal(t, book.ID, got.ID)
	assert.Equal(t, []string{"Ursula K. Le Guin"}, got.Authors)
	assert.Equal(t, []string{"science fiction"}, got.Genres)
	assert.Equal(t, []string{}, got.Tags)
}

func TestCreateBook_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	cases := map[string]func(b *models.Book){
		"blank title":        func(b *models.Book) { b.Title = "   " },
		"no authors":         func(b *models.Book) { b.Authors = nil },
		"zero copies":        func(b *models.Book) { b.TotalCopies = 0 },
		"year too early":     func(b *models.Book) { b.PublicationYear = pointerutil.Int(999) },
		"year in the future": func(b *models.Book) { b.PublicationYear = pointerutil.Int(2025) },
		"bad isbn":           func(b *models.Book) { b.ISBN = pointerutil.String("1234567890") },
		"long language":      func(b *models.Book) { b.Language = pointerutil.String("eng") },
	}
	for name, mutate := range cases {
		book := newBook("Lathe of Heaven", 1)
		mutate(book)
		err := f.books.CreateBook(ctx, book)
		assert.True(t, errcodes.HasCode(err, "validation_error"), name)
	}

	current := newBook("Lathe of Heaven", 1)
	current.PublicationYear = pointerutil.Int(2024)
	assert.NoError(t, f.books.CreateBook(ctx, current))
}

func TestCreateBook_DuplicateISBN(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	first := newBook("A Wizard of Earthsea", 1)
	first.ISBN = pointerutil.String("0-306-40615-2")
	require.NoError(t, f.books.CreateBook(ctx, first))

	second := newBook("Another Title", 1)
	second.ISBN = pointerutil.String("0306406152")
	err := f.books.CreateBook(ctx, second)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, "conflict"))

	// books without an ISBN never collide
	require.NoError(t, f.books.CreateBook(ctx, newBook("No ISBN 1", 1)))
	require.NoError(t, f.books.CreateBook(ctx, newBook("No ISBN 2", 1)))
}

func TestListBooks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	dune := newBook("Dune", 1)
	dune.Authors = []string{"Frank Herbert"}
	dune.Genres = []string{"Science Fiction"}
	require.NoError(t, f.books.CreateBook(ctx, dune))

	emma := newBook("Emma", 2)
	emma.Authors = []string{"Jane Austen"}
	emma.Genres = []string{"Romance"}
	require.NoError(t, f.books.CreateBook(ctx, emma))

	require.NoError(t, f.books.CreateBook(ctx, newBook("Earthsea", 1)))

	all, total, err := f.books.ListBooksWithTotal(ctx, ListBooksOptions{Limit: pointerutil.Int(2)})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Equal(t, 3, total)
	assert.Equal(t, "Dune", all[0].Title)

	byAuthor, err := f.books.ListBooks(ctx, ListBooksOptions{Search: pointerutil.String("austen")})
	require.NoError(t, err)
	require.Len(t, byAuthor, 1)
	assert.Equal(t, "Emma", byAuthor[0].Title)

	byGenre, err := f.books.ListBooks(ctx, ListBooksOptions{Genre: pointerutil.String("science fiction")})
	require.NoError(t, err)
	require.Len(t, byGenre, 1)
	assert.Equal(t, "Dune", byGenre[0].Title)

	member := f.member(t, "STU-001")
	_, err = f.ledger.Lend(ctx, ledger.LendOptions{BookID: dune.ID, MemberID: member.ID})
	require.NoError(t, err)

	loaned, err := f.books.ListBooks(ctx, ListBooksOptions{Status: pointerutil.String(models.BookStatusLoaned)})
	require.NoError(t, err)
	require.Len(t, loaned, 1)
	assert.Equal(t, dune.ID, loaned[0].ID)
}

func TestUpdateBook_TotalCopiesFollowsOpenLoans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	book := newBook("Dune", 3)
	require.NoError(t, f.books.CreateBook(ctx, book))
	member := f.member(t, "STU-001")

	for i := 0; i < 2; i++ {
		_, err := f.ledger.Lend(ctx, ledger.LendOptions{BookID: book.ID, MemberID: member.ID})
		require.NoError(t, err)
	}

	book, err := f.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	book.TotalCopies = 1
	err = f.books.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"total_copies"}})
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, "validation_error"))

	book.TotalCopies = 2
	require.NoError(t, f.books.UpdateBook(ctx, book, UpdateBookOptions{Columns: []string{"total_copies"}}))
	updated, err := f.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.AvailableCopies)
	assert.Equal(t, models.BookStatusLoaned, updated.Status)

	updated.TotalCopies = 5
	require.NoError(t, f.books.UpdateBook(ctx, updated, UpdateBookOptions{Columns: []string{"total_copies"}}))
	updated, err = f.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.AvailableCopies)
	assert.Equal(t, models.BookStatusAvailable, updated.Status)

	issues, err := f.ledger.CheckIntegrity(ctx)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestUpdateBook_NotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	book := newBook("Ghost", 1)
	book.ID = 4242
	err := f.books.UpdateBook(context.Background(), book, UpdateBookOptions{Columns: []string{"title"}})
	assert.True(t, errcodes.HasCode(err, "not_found"))
}

func TestDeleteBook_GuardedByOpenLoans(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newFixture(t)

	book := newBook("Dune", 1)
	require.NoError(t, f.books.CreateBook(ctx, book))
	member := f.member(t, "STU-001")

	txn, err := f.ledger.Lend(ctx, ledger.LendOptions{BookID: book.ID, MemberID: member.ID})
	require.NoError(t, err)

	err = f.books.DeleteBook(ctx, book.ID)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, "conflict"))

	_, err = f.ledger.Return(ctx, txn.ID)
	require.NoError(t, err)

	require.NoError(t, f.books.DeleteBook(ctx, book.ID))

	_, err = f.books.RetrieveBook(ctx, RetrieveBookOptions{ID: &book.ID})
	assert.True(t, errcodes.HasCode(err, "not_found"))
	_, err = f.ledger.RetrieveTransaction(ctx, txn.ID)
	assert.True(t, errcodes.HasCode(err, "not_found"))

	err = f.books.DeleteBook(ctx, book.ID)
	assert.True(t, errcodes.HasCode(err, "not_found"))
}
