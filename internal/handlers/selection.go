package handlers

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/starfederation/datastar-go/datastar"

	"sales-dashboard/internal/errors"
	"sales-dashboard/internal/models"
)

// selectionInput is a selection as sent by a client. A nil list means the
// parameter was absent and the default applies; a non-nil empty list is an
// explicit empty selection.
type selectionInput struct {
	StartDate string   `json:"startDate" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string   `json:"endDate" validate:"omitempty,datetime=2006-01-02"`
	Products  []string `json:"products" validate:"max=1000,dive,max=200"`
	Regions   []string `json:"regions" validate:"max=1000,dive,max=200"`
}

type selectionParser struct {
	validate *validator.Validate
}

func newSelectionParser() *selectionParser {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &selectionParser{validate: v}
}

// fromQuery reads start, end, product and region query parameters.
// Blank list values are dropped, so "product=" selects no products.
func (p *selectionParser) fromQuery(q url.Values) (selectionInput, error) {
	in := selectionInput{
		StartDate: strings.TrimSpace(q.Get("start")),
		EndDate:   strings.TrimSpace(q.Get("end")),
		Products:  listParam(q, "product"),
		Regions:   listParam(q, "region"),
	}
	return in, p.check(in)
}

// fromSignals reads the Datastar signals sent with an SSE request.
func (p *selectionParser) fromSignals(r *http.Request) (selectionInput, error) {
	var in selectionInput
	if err := datastar.ReadSignals(r, &in); err != nil {
		return in, errors.BadRequest("invalid signals payload").WithField("signals", err.Error())
	}
	return in, p.check(in)
}

func (p *selectionParser) check(in selectionInput) error {
	err := p.validate.Struct(in)
	if err == nil {
		return nil
	}

	appErr := errors.ValidationWrap(err, "invalid filter selection")
	var verrs validator.ValidationErrors
	if stderrors.As(err, &verrs) {
		for _, fe := range verrs {
			appErr.WithField(fe.Field(), describe(fe))
		}
	}
	return appErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "datetime":
		return "must be a date in YYYY-MM-DD format"
	case "max":
		return fmt.Sprintf("must not exceed %s", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

func listParam(q url.Values, key string) []string {
	values, ok := q[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// resolve fills absent parts of the input from defaults.
func (in selectionInput) resolve(defaults models.FilterSelection) (models.FilterSelection, error) {
	sel := defaults
	if in.StartDate != "" {
		start, err := parseDay("startDate", in.StartDate)
		if err != nil {
			return sel, err
		}
		sel.Start = start
	}
	if in.EndDate != "" {
		end, err := parseDay("endDate", in.EndDate)
		if err != nil {
			return sel, err
		}
		sel.End = end
	}
	if in.Products != nil {
		sel.Products = in.Products
	}
	if in.Regions != nil {
		sel.Regions = in.Regions
	}
	return sel, nil
}

func parseDay(field, value string) (time.Time, error) {
	t, err := time.Parse(models.DayLayout, value)
	if err != nil {
		return time.Time{}, errors.ValidationWrap(err, "invalid filter selection").
			WithField(field, "must be a date in YYYY-MM-DD format")
	}
	return t.UTC(), nil
}
