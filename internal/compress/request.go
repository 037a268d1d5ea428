package compress

import (
	"errors"
	"fmt"
	"math"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/ironsheep/image-budget-mcp/internal/imaging"
)

// Defaults used when a caller does not supply a parameter.
const (
	DefaultTargetKB = 400.0
	DefaultQuality  = 85
	DefaultMinScale = 0.1
)

// Params are the tuning inputs of a compression run.
type Params struct {
	// TargetKB is the output size budget in kilobytes (1 KB = 1024 bytes).
	TargetKB float64 `json:"target_kb"`

	// Quality is the JPEG quality used for every encode, 1-100.
	Quality int `json:"quality"`

	// MinScale is the smallest linear scale the search may use, in (0, 1].
	MinScale float64 `json:"min_scale"`
}

// DefaultParams returns the stock budget: 400 KB at quality 85, scaling no
// further than 10%.
func DefaultParams() Params {
	return Params{
		TargetKB: DefaultTargetKB,
		Quality:  DefaultQuality,
		MinScale: DefaultMinScale,
	}
}

var finite = validation.By(func(value interface{}) error {
	if f, ok := value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return errors.New("must be a finite number")
	}
	return nil
})

func (p Params) fieldErrors() validation.Errors {
	err := validation.ValidateStruct(&p,
		validation.Field(&p.TargetKB, validation.Required, finite, validation.Min(0.0).Exclusive()),
		validation.Field(&p.Quality, validation.Required, validation.Min(1), validation.Max(100)),
		validation.Field(&p.MinScale, validation.Required, finite, validation.Min(0.0).Exclusive(), validation.Max(1.0)),
	)
	var errs validation.Errors
	if errors.As(err, &errs) {
		return errs
	}
	if err != nil {
		return validation.Errors{"params": err}
	}
	return nil
}

// Validate checks the parameter ranges. Failures are *InvalidRequestError.
func (p Params) Validate() error {
	if errs := p.fieldErrors(); len(errs) > 0 {
		return &InvalidRequestError{Err: errs}
	}
	return nil
}

// Request is one invocation of Compress.
type Request struct {
	Source imaging.Source
	Params
}

// Validate checks that a source is present and the parameters are in range.
func (r Request) Validate() error {
	errs := r.Params.fieldErrors()
	if r.Source == nil {
		if errs == nil {
			errs = validation.Errors{}
		}
		errs["source"] = validation.ErrRequired
	}
	if len(errs) > 0 {
		return &InvalidRequestError{Err: errs}
	}
	return nil
}

// InvalidRequestError reports parameters outside their allowed ranges. The
// wrapped error is a validation.Errors keyed by the JSON field name.
type InvalidRequestError struct {
	Err error
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid compression request: %v", e.Err)
}

func (e *InvalidRequestError) Unwrap() error { return e.Err }
