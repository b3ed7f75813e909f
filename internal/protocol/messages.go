package protocol

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

var ErrInvalidPayload = errors.New("invalid payload")

// Typed views of the structured payload, one per kind that carries one.
// Parse fills them from Fields and enforces the tags.

type Login struct {
	Username string `json:"username" validate:"required,max=36"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=viewer expert"`
}

type Register struct {
	Username string `json:"username" validate:"required,max=36"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone" validate:"omitempty,max=32"`
	Role     string `json:"role" validate:"required,oneof=viewer expert"`
}

type JoinWorkOrder struct {
	RoomID string `json:"roomId" validate:"required,max=64"`
}

// DeviceReading is one telemetry sample. Value may be a string, number or bool.
type DeviceReading struct {
	DeviceID string          `json:"deviceId" validate:"required"`
	Type     string          `json:"type" validate:"required"`
	Value    json.RawMessage `json:"value" validate:"required"`
}

type ControlCommand struct {
	Command string `json:"command" validate:"required"`
	Target  string `json:"target" validate:"required"`
}

type QoSNack struct {
	Sequence *uint64 `json:"sequence" validate:"required"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
			return name
		})
	})
	return validate
}

// Parse decodes fields into T and validates it.
func Parse[T any](fields Fields) (T, error) {
	var msg T
	raw, err := json.Marshal(fields)
	if err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := json.Unmarshal(raw, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if err := validatorInstance().Struct(msg); err != nil {
		return msg, fmt.Errorf("%w: %s", ErrInvalidPayload, describe(err))
	}
	return msg, nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
