package binder

import (
	"encoding/json"
	"net/http"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/shishobooks/circulation/pkg/errcodes"
)

var unknownFieldRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// Binder implements echo.Binder. Bodies are JSON and GET/DELETE parameters
// come from the query string. Either way the result is cleaned up with mold,
// given its defaults and then validated.
type Binder struct {
	query    *schema.Decoder
	conform  *mold.Transformer
	validate *validator.Validate
}

// New builds a Binder with the domain validators registered.
func New() (*Binder, error) {
	query := schema.NewDecoder()
	query.SetAliasTag("query")

	validate, err := newValidator()
	if err != nil {
		return nil, err
	}

	return &Binder{
		query:    query,
		conform:  modifiers.New(),
		validate: validate,
	}, nil
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)
	for tag, fn := range map[string]validator.Func{
		date: dateValidator,
		isbn: isbnValidator,
		lang: languageValidator,
	} {
		if err := validate.RegisterValidation(tag, fn); err != nil {
			return nil, errors.WithStack(err)
		}
	}
	return validate, nil
}

// Bind decodes the request into i, then conforms, defaults and validates it.
// A handler can set "allow_empty_body" on the context for bodyless POSTs.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	switch {
	case req.ContentLength > 0:
		if err := b.bindJSON(i, c); err != nil {
			return err
		}
	case req.Method == http.MethodGet || req.Method == http.MethodDelete:
		if err := b.bindQuery(i, c); err != nil {
			return err
		}
	default:
		if allow, _ := c.Get("allow_empty_body").(bool); !allow {
			return errcodes.EmptyRequestBody()
		}
	}

	if err := b.conform.Struct(req.Context(), i); err != nil {
		return errors.WithStack(err)
	}
	if err := defaults.Set(i); err != nil {
		return errors.WithStack(err)
	}
	if err := b.validate.Struct(i); err != nil {
		var errs validator.ValidationErrors
		if errors.As(err, &errs) && len(errs) > 0 {
			return errcodes.ValidationError(formatValidationError(errs[0]))
		}
		return errors.WithStack(err)
	}
	return nil
}

func (b *Binder) bindJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	if !strings.HasPrefix(req.Header.Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		return errcodes.UnsupportedMediaType()
	}
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if m := unknownFieldRE.FindStringSubmatch(err.Error()); len(m) == 2 {
		return errcodes.UnknownParameter(m[1])
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}

	logger.FromEchoContext(c).Err(err).Warn("malformed json payload")
	return errcodes.MalformedPayload()
}

func (b *Binder) bindQuery(i interface{}, c echo.Context) error {
	err := b.query.Decode(i, c.QueryParams())
	if err == nil {
		return nil
	}

	multi, ok := err.(schema.MultiError)
	if !ok {
		return errors.WithStack(err)
	}
	// Report one problem at a time, like body validation does.
	for _, e := range multi {
		switch e := e.(type) {
		case schema.ConversionError:
			return errcodes.ValidationTypeError(formatSchemaConversionError(e))
		case schema.UnknownKeyError:
			return errcodes.UnknownParameter(e.Key)
		default:
			return errors.WithStack(e)
		}
	}
	return nil
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}
