package csvio

import (
	"io"
	"strconv"
	"strings"

	"github.com/shishobooks/circulation/pkg/models"
)

var bookColumns = []string{
	"id", "title", "authors", "isbn", "publisher", "publication_year", "genres",
	"language", "total_copies", "available_copies", "location", "tags",
	"description", "status",
}

// WriteBooks writes books with a header row.
func WriteBooks(w io.Writer, books []*models.Book) error {
	records := make([][]string, 0, len(books))
	for _, b := range books {
		year := ""
		if b.PublicationYear != nil {
			year = strconv.Itoa(*b.PublicationYear)
		}
		records = append(records, []string{
			strconv.Itoa(b.ID),
			b.Title,
			strings.Join(b.Authors, listSeparator),
			formatOptional(b.ISBN),
			formatOptional(b.Publisher),
			year,
			strings.Join(b.Genres, listSeparator),
			formatOptional(b.Language),
			strconv.Itoa(b.TotalCopies),
			strconv.Itoa(b.AvailableCopies),
			formatOptional(b.Location),
			strings.Join(b.Tags, listSeparator),
			formatOptional(b.Description),
			b.Status,
		})
	}
	return writeAll(w, bookColumns, records)
}

// ReadBooks decodes a books CSV. Only title and authors are required; id,
// available_copies and status are ignored since imports always create new
// books with every copy on the shelf.
func ReadBooks(r io.Reader) ([]Row[models.Book], error) {
	return readAll(r, []string{"title", "authors"}, func(h header, record []string) (*models.Book, error) {
		total, err := h.intOr(record, "total_copies", 1)
		if err != nil {
			return nil, err
		}
		book := &models.Book{
			Title:       h.get(record, "title"),
			Authors:     h.list(record, "authors"),
			ISBN:        h.optional(record, "isbn"),
			Publisher:   h.optional(record, "publisher"),
			Genres:      h.list(record, "genres"),
			Language:    h.optional(record, "language"),
			TotalCopies: total,
			Location:    h.optional(record, "location"),
			Tags:        h.list(record, "tags"),
			Description: h.optional(record, "description"),
		}
		if h.get(record, "publication_year") != "" {
			year, err := h.intOr(record, "publication_year", 0)
			if err != nil {
				return nil, err
			}
			book.PublicationYear = &year
		}
		return book, nil
	})
}
