package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator() //nolint:gochecknoglobals // validator caches struct metadata and is safe for concurrent use

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("eyecolor", func(fl validator.FieldLevel) bool {
		return IsEyeColor(fl.Field().String())
	})
	_ = v.RegisterValidation("haircolor", func(fl validator.FieldLevel) bool {
		return IsHairColor(fl.Field().String())
	})
	return v
}

// PredictionInput is what a participant submits.
type PredictionInput struct {
	UserName        string           `json:"user_name" validate:"required,min=2,max=50"`
	UserEmail       string           `json:"user_email" validate:"required,email"`
	ConnectionTypes []ConnectionType `json:"connection_types" validate:"min=1,dive,oneof=family friends"`
	BirthDate       string           `json:"birth_date" validate:"required"`
	BirthTime       ClockTime        `json:"birth_time"`
	Weight          float64          `json:"weight" validate:"min=2.5,max=4.5"`
	Height          float64          `json:"height" validate:"min=40,max=60"`
	EyeColor        string           `json:"eye_color" validate:"eyecolor"`
	HairColor       string           `json:"hair_color" validate:"haircolor"`
}

// Validate checks the input against the form constraints.
func (in PredictionInput) Validate() error {
	if err := structErr(validate.Struct(in)); err != nil {
		return err
	}
	if !in.BirthTime.Valid() {
		return fmt.Errorf("%w: birth_time out of range", ErrValidation)
	}
	if _, err := ParseDate(in.BirthDate); err != nil {
		return fmt.Errorf("%w: birth_date: %w", ErrValidation, err)
	}
	return nil
}

// Guess converts a validated input into scored attributes.
func (in PredictionInput) Guess() (Guess, error) {
	date, err := ParseDate(in.BirthDate)
	if err != nil {
		return Guess{}, err
	}
	return Guess{
		BirthDate: date,
		BirthTime: in.BirthTime,
		Weight:    in.Weight,
		Height:    in.Height,
		EyeColor:  in.EyeColor,
		HairColor: in.HairColor,
	}, nil
}

// ActualResultInput is what the admin enters after the birth. Weight and
// height are not limited to the guessing range.
type ActualResultInput struct {
	BirthDate string    `json:"birth_date" validate:"required"`
	BirthTime ClockTime `json:"birth_time"`
	Weight    float64   `json:"weight" validate:"gt=0"`
	Height    float64   `json:"height" validate:"gt=0"`
	EyeColor  string    `json:"eye_color" validate:"eyecolor"`
	HairColor string    `json:"hair_color" validate:"haircolor"`
}

// Validate checks the actual result input.
func (in ActualResultInput) Validate() error {
	if err := structErr(validate.Struct(in)); err != nil {
		return err
	}
	if !in.BirthTime.Valid() {
		return fmt.Errorf("%w: birth_time out of range", ErrValidation)
	}
	if _, err := ParseDate(in.BirthDate); err != nil {
		return fmt.Errorf("%w: birth_date: %w", ErrValidation, err)
	}
	return nil
}

// Guess converts a validated input into scored attributes.
func (in ActualResultInput) Guess() (Guess, error) {
	return PredictionInput{
		BirthDate: in.BirthDate,
		BirthTime: in.BirthTime,
		Weight:    in.Weight,
		Height:    in.Height,
		EyeColor:  in.EyeColor,
		HairColor: in.HairColor,
	}.Guess()
}

// PredictionPatch is an admin correction; nil fields are left untouched.
type PredictionPatch struct {
	BirthDate *string    `json:"birth_date,omitempty"`
	BirthTime *ClockTime `json:"birth_time,omitempty"`
	Weight    *float64   `json:"weight,omitempty" validate:"omitempty,gt=0"`
	Height    *float64   `json:"height,omitempty" validate:"omitempty,gt=0"`
	EyeColor  *string    `json:"eye_color,omitempty" validate:"omitempty,eyecolor"`
	HairColor *string    `json:"hair_color,omitempty" validate:"omitempty,haircolor"`
}

// Validate checks the non-nil fields.
func (p PredictionPatch) Validate() error {
	if err := structErr(validate.Struct(p)); err != nil {
		return err
	}
	if p.BirthTime != nil && !p.BirthTime.Valid() {
		return fmt.Errorf("%w: birth_time out of range", ErrValidation)
	}
	if p.BirthDate != nil {
		if _, err := ParseDate(*p.BirthDate); err != nil {
			return fmt.Errorf("%w: birth_date: %w", ErrValidation, err)
		}
	}
	return nil
}

// Empty reports whether the patch changes nothing.
func (p PredictionPatch) Empty() bool {
	return p.BirthDate == nil && p.BirthTime == nil && p.Weight == nil &&
		p.Height == nil && p.EyeColor == nil && p.HairColor == nil
}

// Apply returns g with the patch applied. The patch must be valid.
func (p PredictionPatch) Apply(g Guess) Guess {
	if p.BirthDate != nil {
		if d, err := ParseDate(*p.BirthDate); err == nil {
			g.BirthDate = d
		}
	}
	if p.BirthTime != nil {
		g.BirthTime = *p.BirthTime
	}
	if p.Weight != nil {
		g.Weight = *p.Weight
	}
	if p.Height != nil {
		g.Height = *p.Height
	}
	if p.EyeColor != nil {
		g.EyeColor = *p.EyeColor
	}
	if p.HairColor != nil {
		g.HairColor = *p.HairColor
	}
	return g
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// structErr flattens validator errors into one ErrValidation.
func structErr(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}
	return fmt.Errorf("%w: %s", ErrValidation, strings.Join(fields, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	name := fe.Field()
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "email":
		return name + " must be a valid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s", name, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", name, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", name, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", name, fe.Param())
	case "eyecolor", "haircolor":
		return fmt.Sprintf("%s %q is not a known color", name, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s", name, fe.Tag())
	}
}
