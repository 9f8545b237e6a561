package books

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/circulation/pkg/errcodes"
	"github.com/shishobooks/circulation/pkg/models"
)

type handler struct {
	bookService *Service
}

func (h *handler) create(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := CreateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	totalCopies := 1
	if params.TotalCopies != nil {
		totalCopies = *params.TotalCopies
	}

	book := &models.Book{
		Title:           params.Title,
		Authors:         params.Authors,
		ISBN:            params.ISBN,
		Publisher:       params.Publisher,
		PublicationYear: params.PublicationYear,
		Genres:          params.Genres,
		Language:        params.Language,
		TotalCopies:     totalCopies,
		Location:        params.Location,
		Tags:            params.Tags,
		Description:     params.Description,
		CoverImage:      params.CoverImage,
	}

	if err := h.bookService.CreateBook(ctx, book); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, book))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	// Bind params.
	params := ListBooksQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	books, total, err := h.bookService.ListBooksWithTotal(ctx, ListBooksOptions{
		Limit:  &params.Limit,
		Offset: &params.Offset,
		Search: params.Search,
		Genre:  params.Genre,
		Status: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	resp := struct {
		Books []*models.Book `json:"books"`
		Total int            `json:"total"`
	}{books, total}

	return errors.WithStack(c.JSON(http.StatusOK, resp))
}

func (h *handler) update(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	// Bind params.
	params := UpdateBookPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	// Fetch the book.
	book, err := h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	// Keep track of what's been changed.
	opts := UpdateBookOptions{Columns: []string{}}

	if params.Title != nil && *params.Title != book.Title {
		book.Title = *params.Title
		opts.Columns = append(opts.Columns, "title")
	}
	if params.Authors != nil {
		book.Authors = params.Authors
		opts.Columns = append(opts.Columns, "authors")
	}
	if params.ISBN != nil {
		book.ISBN = emptyToNil(params.ISBN)
		opts.Columns = append(opts.Columns, "isbn")
	}
	if params.Publisher != nil {
		book.Publisher = emptyToNil(params.Publisher)
		opts.Columns = append(opts.Columns, "publisher")
	}
	if params.PublicationYear != nil {
		book.PublicationYear = params.PublicationYear
		opts.Columns = append(opts.Columns, "publication_year")
	}
	if params.Genres != nil {
		book.Genres = params.Genres
		opts.Columns = append(opts.Columns, "genres")
	}
	if params.Language != nil {
		book.Language = emptyToNil(params.Language)
		opts.Columns = append(opts.Columns, "language")
	}
	if params.TotalCopies != nil && *params.TotalCopies != book.TotalCopies {
		book.TotalCopies = *params.TotalCopies
		opts.Columns = append(opts.Columns, "total_copies")
	}
	if params.Location != nil {
		book.Location = emptyToNil(params.Location)
		opts.Columns = append(opts.Columns, "location")
	}
	if params.Tags != nil {
		book.Tags = params.Tags
		opts.Columns = append(opts.Columns, "tags")
	}
	if params.Description != nil {
		book.Description = emptyToNil(params.Description)
		opts.Columns = append(opts.Columns, "description")
	}
	if params.CoverImage != nil {
		book.CoverImage = emptyToNil(params.CoverImage)
		opts.Columns = append(opts.Columns, "cover_image")
	}

	// Update the model.
	err = h.bookService.UpdateBook(ctx, book, opts)
	if err != nil {
		return errors.WithStack(err)
	}

	// Reload the model.
	book, err = h.bookService.RetrieveBook(ctx, RetrieveBookOptions{
		ID: &id,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, book))
}

func (h *handler) delete(c echo.Context) error {
	ctx := c.Request().Context()
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return errcodes.NotFound("Book")
	}

	if err := h.bookService.DeleteBook(ctx, id); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
