package binder

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/creasty/defaults"
	"github.com/go-playground/mold/v4"
	"github.com/go-playground/mold/v4/modifiers"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/labstack/echo/v4"
	"github.com/looplet/looplet/pkg/errcodes"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
)

var unknownFieldsRE = regexp.MustCompile(`^json: unknown field "(.*)"$`)

// formFilesField is the struct field that receives uploaded files. It must be
// a map[string][]*multipart.FileHeader.
const formFilesField = "FormFiles"

var fileHeadersType = reflect.TypeOf([]*multipart.FileHeader{})

// Binder implements echo.Binder. It decodes the request into a struct, runs
// mold modifiers over it, fills defaults, and validates it.
type Binder struct {
	queryDecoder *schema.Decoder
	formDecoder  *schema.Decoder
	conform      *mold.Transformer
	validate     *validator.Validate
}

func New() (*Binder, error) {
	queryDecoder := schema.NewDecoder()
	queryDecoder.SetAliasTag("query")
	queryDecoder.IgnoreUnknownKeys(true)
	formDecoder := schema.NewDecoder()
	formDecoder.SetAliasTag("form")
	formDecoder.IgnoreUnknownKeys(true)
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	return &Binder{queryDecoder, formDecoder, modifiers.New(), validate}, nil
}

// Bind binds, modifies, and validates payloads against the given struct.
//
// Handlers can loosen JSON decoding per request by setting
// "disallow_unknown_fields" or "disallow_empty_body" to false on the context.
func (b *Binder) Bind(i interface{}, c echo.Context) error {
	req := c.Request()

	if req.ContentLength != 0 && req.Body != nil && req.Body != http.NoBody {
		ctype := req.Header.Get(echo.HeaderContentType)
		switch {
		case strings.HasPrefix(ctype, echo.MIMEApplicationJSON):
			if err := b.bindJSON(i, c); err != nil {
				return err
			}
		case strings.HasPrefix(ctype, echo.MIMEApplicationForm), strings.HasPrefix(ctype, echo.MIMEMultipartForm):
			if err := b.bindForm(i, c, strings.HasPrefix(ctype, echo.MIMEMultipartForm)); err != nil {
				return err
			}
		default:
			return errcodes.UnsupportedMediaType()
		}
	} else {
		if req.Method == http.MethodGet || req.Method == http.MethodDelete {
			if err := b.decodeValues(i, c.QueryParams(), b.queryDecoder); err != nil {
				return err
			}
		} else if flag(c, "disallow_empty_body") {
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
		if !errors.As(err, &errs) {
			return errors.WithStack(err)
		}
		return errcodes.ValidationError(formatValidationError(errs[0]))
	}
	return nil
}

func (b *Binder) bindJSON(i interface{}, c echo.Context) error {
	req := c.Request()
	defer req.Body.Close()

	dec := json.NewDecoder(req.Body)
	if flag(c, "disallow_unknown_fields") {
		dec.DisallowUnknownFields()
	}
	err := dec.Decode(i)
	if err == nil {
		return nil
	}

	if matches := unknownFieldsRE.FindStringSubmatch(err.Error()); len(matches) > 1 {
		return errcodes.UnknownParameter(matches[1])
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return errcodes.ValidationTypeError(formatUnmarshalTypeError(typeErr))
	}

	logger.FromEchoContext(c).Err(err).Error("unknown json decode error")
	return errcodes.MalformedPayload()
}

// bindForm decodes url-encoded and multipart fields (query string values
// included) into i and, for multipart requests, collects every uploaded file
// into the struct's FormFiles map keyed by field name.
func (b *Binder) bindForm(i interface{}, c echo.Context, multipartBody bool) error {
	params, err := c.FormParams()
	if err != nil {
		return errcodes.MalformedPayload()
	}
	if err := b.decodeValues(i, params, b.formDecoder); err != nil {
		return err
	}
	if !multipartBody {
		return nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return errcodes.MalformedPayload()
	}

	field := reflect.ValueOf(i).Elem().FieldByName(formFilesField)
	if !field.IsValid() || !field.CanSet() || field.Kind() != reflect.Map || field.Type().Elem() != fileHeadersType {
		return nil
	}

	files := reflect.MakeMapWithSize(field.Type(), len(form.File))
	for key, headers := range form.File {
		if len(headers) > 0 {
			files.SetMapIndex(reflect.ValueOf(key), reflect.ValueOf(headers))
		}
	}
	field.Set(files)
	return nil
}

func (b *Binder) decodeValues(i interface{}, values url.Values, decoder *schema.Decoder) error {
	err := decoder.Decode(i, values)
	if err == nil {
		return nil
	}

	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return errors.WithStack(err)
	}
	for _, e := range multi {
		var convErr schema.ConversionError
		if errors.As(e, &convErr) {
			return errcodes.ValidationTypeError(formatSchemaConversionError(convErr))
		}
		var keyErr schema.UnknownKeyError
		if errors.As(e, &keyErr) {
			return errcodes.UnknownParameter(keyErr.Key)
		}
		return errors.WithStack(e)
	}
	return nil
}

// flag reads a boolean toggle from the echo context. Toggles default to on.
func flag(c echo.Context, name string) bool {
	if v, ok := c.Get(name).(bool); ok {
		return v
	}
	return true
}
