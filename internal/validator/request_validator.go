package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	playground "github.com/go-playground/validator/v10"

	"github.com/juancollazo-ch/holded-order-monitor/internal/models"
)

// RequestValidator valida los cuerpos de las peticiones HTTP
type RequestValidator struct {
	validate *playground.Validate
}

func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: playground.New()}
}

// ValidateRunRequest valida el body de POST /run y devuelve el instante de referencia
// (nil si no se indicó).
func (v *RequestValidator) ValidateRunRequest(req *models.RunRequest) (*time.Time, error) {
	if err := v.validate.Struct(req); err != nil {
		return nil, errors.New(describe(err))
	}
	if req.ReferenceTime == "" {
		return nil, nil
	}
	t, err := ParseReferenceTime(req.ReferenceTime)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseReferenceTime acepta RFC3339 (el formato de --at y de reference_time).
func ParseReferenceTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("reference_time must be RFC3339 (e.g. 2024-03-10T09:00:00+01:00): %w", err)
	}
	return t, nil
}

func describe(err error) string {
	var verrs playground.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "datetime":
			parts = append(parts, "reference_time must be RFC3339 (e.g. 2024-03-10T09:00:00+01:00)")
		case "oneof":
			parts = append(parts, fmt.Sprintf("trigger must be one of: %s", fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
