package profile

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"

	"clickpredict/internal/inference"
)

var ErrInvalidProfile = errors.New("invalid customer profile")

const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Columns is the training column order of the bank dataset, without the
// AGREEMENT_RK id and the TARGET label.
var Columns = []string{
	"AGE",
	"GENDER",
	"CHILD_TOTAL",
	"DEPENDANTS",
	"SOCSTATUS_WORK_FL",
	"SOCSTATUS_PENS_FL",
	"PERSONAL_INCOME",
	"LOAN_NUM_TOTAL",
	"LOAN_NUM_CLOSED",
}

const (
	maxAge        = 100
	maxChildren   = 100
	maxDependants = 100
	maxIncome     = 1_000_000
	maxLoans      = 10
)

// Profile is the customer form behind a single prediction.
type Profile struct {
	Gender         string  `json:"gender"`
	Age            int     `json:"age"`
	Children       int     `json:"children"`
	Dependants     int     `json:"dependants"`
	Employed       bool    `json:"employed"`
	Retired        bool    `json:"retired"`
	PersonalIncome float64 `json:"personal_income"`
	Loans          int     `json:"loans"`
	ClosedLoans    int     `json:"closed_loans"`
}

func (p Profile) Validate() error {
	gender := strings.ToLower(p.Gender)
	if gender != GenderMale && gender != GenderFemale {
		return fmt.Errorf("%w: gender must be %q or %q, got %q", ErrInvalidProfile, GenderMale, GenderFemale, p.Gender)
	}
	if err := inRange("age", float64(p.Age), maxAge); err != nil {
		return err
	}
	if err := inRange("children", float64(p.Children), maxChildren); err != nil {
		return err
	}
	if err := inRange("dependants", float64(p.Dependants), maxDependants); err != nil {
		return err
	}
	if err := inRange("personal_income", p.PersonalIncome, maxIncome); err != nil {
		return err
	}
	if err := inRange("loans", float64(p.Loans), maxLoans); err != nil {
		return err
	}
	if p.ClosedLoans < 0 || p.ClosedLoans > p.Loans {
		return fmt.Errorf("%w: closed_loans must be between 0 and loans (%d), got %d", ErrInvalidProfile, p.Loans, p.ClosedLoans)
	}
	return nil
}

func inRange(field string, value, max float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s must be a finite number, got %v", ErrInvalidProfile, field, value)
	}
	if value < 0 || value > max {
		return fmt.Errorf("%w: %s must be between 0 and %v, got %v", ErrInvalidProfile, field, max, value)
	}
	return nil
}

// Vector encodes the profile as a raw, unscaled feature vector.
func (p Profile) Vector() inference.FeatureVector {
	return inference.NewFeatureVector(Columns, []float64{
		float64(p.Age),
		flag(strings.EqualFold(p.Gender, GenderMale)),
		float64(p.Children),
		float64(p.Dependants),
		flag(p.Employed),
		flag(p.Retired),
		p.PersonalIncome,
		float64(p.Loans),
		float64(p.ClosedLoans),
	})
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// FromMap builds a profile from loosely typed form values, accepting numbers
// or numeric strings. Counts must be whole numbers: 3.0 is accepted, 25.7 is
// not. Missing keys keep their zero value; gender defaults to female.
func FromMap(values map[string]any) (Profile, error) {
	p := Profile{Gender: GenderFemale}
	var err error

	if v, ok := values["gender"]; ok {
		if p.Gender, err = cast.ToStringE(v); err != nil {
			return p, fieldError("gender", err)
		}
	}

	ints := map[string]*int{
		"age":          &p.Age,
		"children":     &p.Children,
		"dependants":   &p.Dependants,
		"loans":        &p.Loans,
		"closed_loans": &p.ClosedLoans,
	}
	for key, dst := range ints {
		if v, ok := values[key]; ok {
			if *dst, err = toCount(v); err != nil {
				return p, fieldError(key, err)
			}
		}
	}

	bools := map[string]*bool{
		"employed": &p.Employed,
		"retired":  &p.Retired,
	}
	for key, dst := range bools {
		if v, ok := values[key]; ok {
			if *dst, err = cast.ToBoolE(v); err != nil {
				return p, fieldError(key, err)
			}
		}
	}

	if v, ok := values["personal_income"]; ok {
		if p.PersonalIncome, err = cast.ToFloat64E(v); err != nil {
			return p, fieldError("personal_income", err)
		}
	}

	return p, nil
}

func toCount(v any) (int, error) {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("%v is not a whole number", v)
	}
	if math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%v is out of range", v)
	}
	return int(f), nil
}

func fieldError(field string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrInvalidProfile, field, err)
}
