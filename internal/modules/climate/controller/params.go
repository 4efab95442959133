package controller

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"climate-server/internal/config"
	"climate-server/internal/modules/climate/types"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report path parameter names instead of Go field names.
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			return fld.Tag.Get("param")
		})
	})
	return validate
}

type dateRangeParams struct {
	Start string `param:"start" validate:"required,datetime=2006-01-02"`
	End   string `param:"end" validate:"omitempty,datetime=2006-01-02"`
}

// parseDateRange reads {start} and the optional {end} path segments.
func parseDateRange(r *http.Request) (types.DateRange, error) {
	p := dateRangeParams{
		Start: chi.URLParam(r, "start"),
		End:   chi.URLParam(r, "end"),
	}
	if err := getValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return types.DateRange{}, fmt.Errorf("invalid '%s' (expected YYYY-MM-DD)", verrs[0].Field())
		}
		return types.DateRange{}, err
	}

	var dr types.DateRange
	var err error
	dr.Start, err = time.Parse(config.DateLayout, p.Start)
	if err != nil {
		return types.DateRange{}, errors.New("invalid 'start' (expected YYYY-MM-DD)")
	}
	if p.End != "" {
		dr.End, err = time.Parse(config.DateLayout, p.End)
		if err != nil {
			return types.DateRange{}, errors.New("invalid 'end' (expected YYYY-MM-DD)")
		}
		if dr.Start.After(dr.End) {
			return types.DateRange{}, errors.New("'start' must be <= 'end'")
		}
	}
	return dr, nil
}
