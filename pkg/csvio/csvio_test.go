package csvio

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/robinjoseph08/golib/pointerutil"
	"github.com/shishobooks/circulation/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBooksRoundTrip(t *testing.T) {
	t.Parallel()

	books := []*models.Book{
		{
			ID:              1,
			Title:           "The Left Hand of Darkness",
			Authors:         []string{"Ursula K. Le Guin"},
			ISBN:            pointerutil.String("9780441478125"),
			PublicationYear: pointerutil.Int(1969),
			Genres:          []string{"Science Fiction", "Classic"},
			Language:        pointerutil.String("en"),
			TotalCopies:     3,
			AvailableCopies: 1,
			Tags:            []string{},
			Description:     pointerutil.String("Winter, \"Gethen\", and a long walk\nacross the ice."),
			Status:          models.BookStatusAvailable,
		},
		{
			ID:          2,
			Title:       "Good Omens",
			Authors:     []string{"Terry Pratchett", "Neil Gaiman"},
			Genres:      []string{},
			Tags:        []string{"staff-pick"},
			TotalCopies: 1,
			Status:      models.BookStatusLoaned,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBooks(&buf, books))

	rows, err := ReadBooks(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	for i, row := range rows {
		require.NoError(t, row.Err)
		got, want := row.Value, books[i]
		assert.Equal(t, want.Title, got.Title)
		assert.Equal(t, want.Authors, got.Authors)
		assert.Equal(t, want.ISBN, got.ISBN)
		assert.Equal(t, want.PublicationYear, got.PublicationYear)
		assert.Equal(t, want.Genres, got.Genres)
		assert.Equal(t, want.Language, got.Language)
		assert.Equal(t, want.TotalCopies, got.TotalCopies)
		assert.Equal(t, want.Tags, got.Tags)
		assert.Equal(t, want.Description, got.Description)
		// imported books always start fully available
		assert.Zero(t, got.AvailableCopies)
		assert.Zero(t, got.ID)
	}
	assert.Equal(t, 2, rows[0].Line)
}

func TestReadBooks_RowErrors(t *testing.T) {
	t.Parallel()

	input := "Title,Authors,Total_Copies,publication_year\n" +
		"Dune,Frank Herbert,2,1965\n" +
		"\n" +
		"Emma,Jane Austen,many,\n" +
		"Ulysses,James Joyce,,nineteen\n"

	rows, err := ReadBooks(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, rows[0].Err)
	assert.Equal(t, 2, rows[0].Value.TotalCopies)
	assert.Equal(t, 1965, *rows[0].Value.PublicationYear)

	assert.ErrorContains(t, rows[1].Err, "total_copies")
	assert.Equal(t, 4, rows[1].Line)
	assert.ErrorContains(t, rows[2].Err, "publication_year")
}

func TestReadBooks_MissingColumns(t *testing.T) {
	t.Parallel()

	_, err := ReadBooks(strings.NewReader("title,isbn\nDune,\n"))
	assert.ErrorContains(t, err, "authors")

	_, err = ReadBooks(strings.NewReader(""))
	assert.ErrorContains(t, err, "empty")
}

func TestMembersRoundTrip(t *testing.T) {
	t.Parallel()

	members := []*models.Member{
		{ID: 7, Name: "Ada Lovelace", MemberCode: "STU-001", Email: pointerutil.String("ada@example.com"), MemberType: models.MemberTypeStudent},
		{ID: 8, Name: "Alan Turing", MemberCode: "FAC-001", Address: pointerutil.String("Bletchley, UK"), MemberType: models.MemberTypeFaculty},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteMembers(&buf, members))

	rows, err := ReadMembers(&buf)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for i, row := range rows {
		require.NoError(t, row.Err)
		assert.Equal(t, members[i].Name, row.Value.Name)
		assert.Equal(t, members[i].MemberCode, row.Value.MemberCode)
		assert.Equal(t, members[i].Email, row.Value.Email)
		assert.Equal(t, members[i].Address, row.Value.Address)
		assert.Equal(t, members[i].MemberType, row.Value.MemberType)
		assert.Nil(t, row.Value.Phone)
	}
}

func TestWriteTransactions(t *testing.T) {
	t.Parallel()

	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	returned := day(20)
	txns := []*models.Transaction{
		{
			ID: 1, BookID: 2, MemberID: 3, Type: models.TransactionTypeLend,
			TransactionDate: day(1), DueDate: day(15), ReturnDate: &returned,
			FineAmount: 25, FinePaid: false,
			Book:   &models.Book{Title: "Dune"},
			Member: &models.Member{MemberCode: "STU-001"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteTransactions(&buf, txns))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,book_id,book_title,member_id,member_code,type,transaction_date,due_date,return_date,fine_amount,fine_paid,notes", lines[0])
	assert.Equal(t, "1,2,Dune,3,STU-001,lend,2024-01-01,2024-01-15,2024-01-20,25.00,false,", lines[1])
}
