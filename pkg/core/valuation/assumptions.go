package valuation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidAssumptions is matched by every *AssumptionsError.
var ErrInvalidAssumptions = errors.New("invalid valuation assumptions")

// Assumptions are the caller-supplied inputs shared by the models.
// Rates are fractions (0.10 = 10%); BondYield is a percentage like the published AAA yield.
type Assumptions struct {
	DiscountRate       float64 `json:"discount_rate" yaml:"discount_rate" validate:"gt=0,lt=1,gtfield=TerminalGrowthRate"`
	TerminalGrowthRate float64 `json:"terminal_growth_rate" yaml:"terminal_growth_rate" validate:"gt=0,lt=1"`
	ProjectionYears    int     `json:"projection_years" yaml:"projection_years" validate:"min=3,max=10"`

	// Optional overrides; nil means "use the historical estimate" or the configured yield.
	FCFGrowthRate  *float64 `json:"fcf_growth_rate,omitempty" yaml:"fcf_growth_rate,omitempty" validate:"omitempty,finite,gt=-1"`
	FCFEGrowthRate *float64 `json:"fcfe_growth_rate,omitempty" yaml:"fcfe_growth_rate,omitempty" validate:"omitempty,finite,gt=-1"`
	BondYield      *float64 `json:"bond_yield,omitempty" yaml:"bond_yield,omitempty" validate:"omitempty,finite,gt=0"`
}

// DefaultAssumptions mirrors the dashboard's starting inputs.
func DefaultAssumptions() Assumptions {
	return Assumptions{
		DiscountRate:       0.10,
		TerminalGrowthRate: 0.025,
		ProjectionYears:    5,
	}
}

// FieldError names one offending assumption.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// AssumptionsError lists every rejected field.
type AssumptionsError struct {
	Fields []FieldError `json:"fields"`
}

func (e *AssumptionsError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidAssumptions.Error(), strings.Join(parts, "; "))
}

func (e *AssumptionsError) Unwrap() error { return ErrInvalidAssumptions }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// Validate checks the assumptions and returns an *AssumptionsError describing
// every offending field, or nil.
func (a Assumptions) Validate() error {
	err := validate.Struct(a)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidAssumptions, err)
	}
	out := &AssumptionsError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Reason: reasonFor(fe)})
	}
	return out
}

func reasonFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return "must be greater than " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gtfield":
		return "must be greater than terminal_growth_rate"
	case "finite":
		return "must be a finite number"
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// validateInputs checks the assumptions and the quoted price together so a caller
// sees every problem at once.
func validateInputs(a Assumptions, currentPrice float64) error {
	var fields []FieldError
	if err := a.Validate(); err != nil {
		var aerr *AssumptionsError
		if !errors.As(err, &aerr) {
			return err
		}
		fields = append(fields, aerr.Fields...)
	}
	if !(currentPrice > 0) || math.IsInf(currentPrice, 0) {
		fields = append(fields, FieldError{Field: "current_price", Reason: "must be a finite number greater than 0"})
	}
	if len(fields) > 0 {
		return &AssumptionsError{Fields: fields}
	}
	return nil
}
