package synthesis

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks r before the pipeline runs and returns a *ValidationError
// listing every problem found.
func (r *TripRequest) Validate() error {
	r.Destination = strings.TrimSpace(r.Destination)
	r.Purpose = strings.TrimSpace(r.Purpose)
	r.UserID = strings.TrimSpace(r.UserID)

	var problems []FieldProblem
	if err := getValidator().Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &ValidationError{Problems: []FieldProblem{{Field: "request", Reason: err.Error()}}}
		}
		for _, fe := range verrs {
			problems = append(problems, FieldProblem{Field: fe.Field(), Reason: describeTag(fe)})
		}
	}
	switch {
	case r.StartDate.IsZero():
		problems = append(problems, FieldProblem{Field: "start_date", Reason: "is required"})
	case r.EndDate.IsZero():
		problems = append(problems, FieldProblem{Field: "end_date", Reason: "is required"})
	case r.EndDate.Before(r.StartDate.Time):
		problems = append(problems, FieldProblem{Field: "end_date", Reason: "must not be before start_date"})
	}
	if r.StartDate.IsZero() && r.EndDate.IsZero() {
		problems = append(problems, FieldProblem{Field: "end_date", Reason: "is required"})
	}
	if r.Photo != nil {
		switch {
		case len(r.Photo.Data) == 0:
			problems = append(problems, FieldProblem{Field: "image", Reason: "is empty"})
		case !strings.HasPrefix(r.Photo.MIMEType, "image/"):
			problems = append(problems, FieldProblem{Field: "image", Reason: fmt.Sprintf("unsupported content type %q", r.Photo.MIMEType)})
		}
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
