package outline

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yungbote/microlearn-backend/internal/platform/apierr"
)

const (
	MinBuildSessions = 1
	MaxBuildSessions = 20
)

type Session struct {
	SessionNumber int    `json:"sessionNumber" validate:"gt=0"`
	Title         string `json:"title" validate:"required,max=300"`
	Subtitle      string `json:"subtitle,omitempty" validate:"max=500"`
}

type Outline struct {
	Title       string    `json:"title" validate:"required,max=300"`
	Description string    `json:"description" validate:"max=4000"`
	Sessions    []Session `json:"sessions" validate:"min=1,max=20,dive"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Clone returns a deep copy.
func (o Outline) Clone() Outline {
	out := o
	out.Sessions = append([]Session(nil), o.Sessions...)
	return out
}

func (o Outline) trimmed() Outline {
	out := o.Clone()
	out.Title = strings.TrimSpace(out.Title)
	out.Description = strings.TrimSpace(out.Description)
	for i := range out.Sessions {
		out.Sessions[i].Title = strings.TrimSpace(out.Sessions[i].Title)
		out.Sessions[i].Subtitle = strings.TrimSpace(out.Sessions[i].Subtitle)
	}
	return out
}

// Normalize trims text and orders sessions by sessionNumber, then renumbers them 1..N.
// Sessions without a positive number keep their position relative to each other and go last.
func Normalize(o Outline) Outline {
	out := o.trimmed()
	sort.SliceStable(out.Sessions, func(i, j int) bool {
		a, b := out.Sessions[i].SessionNumber, out.Sessions[j].SessionNumber
		if a <= 0 || b <= 0 {
			return a > 0 && b <= 0
		}
		return a < b
	})
	for i := range out.Sessions {
		out.Sessions[i].SessionNumber = i + 1
	}
	return out
}

// ValidateForBuild checks an approved outline and returns it normalized.
// Failures wrap apierr.ErrValidation.
func ValidateForBuild(o Outline) (Outline, error) {
	t := o.trimmed()
	if err := validate.Struct(t); err != nil {
		return Outline{}, apierr.Validation("%s", describe(err))
	}
	seen := make(map[int]bool, len(t.Sessions))
	for _, s := range t.Sessions {
		if seen[s.SessionNumber] {
			return Outline{}, apierr.Validation("duplicate sessionNumber %d", s.SessionNumber)
		}
		seen[s.SessionNumber] = true
	}
	return Normalize(t), nil
}

// checkGenerated is the shape check applied to provider output after normalization.
func checkGenerated(o Outline) error {
	if o.Title == "" || o.Description == "" {
		return errors.New("outline missing title or description")
	}
	if n := len(o.Sessions); n < MinBuildSessions || n > MaxBuildSessions {
		return fmt.Errorf("outline has %d sessions", n)
	}
	for _, s := range o.Sessions {
		if s.Title == "" {
			return fmt.Errorf("session %d has no title", s.SessionNumber)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Outline.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "gt":
		return field + " must be a positive integer"
	case "min", "max":
		if fe.Field() == "Sessions" {
			return fmt.Sprintf("sessions must contain between %d and %d entries", MinBuildSessions, MaxBuildSessions)
		}
		return fmt.Sprintf("%s length out of range (%s=%s)", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}
