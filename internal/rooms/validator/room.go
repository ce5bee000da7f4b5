package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"innkeep/pkg/logger"
	"innkeep/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return v.Field + ": " + v.Message
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	messages := make([]string, len(v))
	for i, err := range v {
		messages[i] = err.Error()
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

// Fields maps each failing field to its message, for error details.
func (v ValidationErrors) Fields() map[string]any {
	fields := make(map[string]any, len(v))
	for _, err := range v {
		fields[err.Field] = err.Message
	}
	return fields
}

var tagMessages = map[string]string{
	"required": "%s is required",
	"min":      "%s must be at least %s",
	"max":      "%s must be at most %s",
	"gte":      "%s must be greater than or equal to %s",
	"roomname": "%s must be printable and must not contain '/', '?' or '#'",
}

type RoomValidator struct {
	validate *validator.Validate
	log      *logger.Logger
}

func NewRoomValidator(log *logger.Logger) *RoomValidator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterCustomTypeFunc(priceValue, model.Price{})
	v.RegisterTagNameFunc(jsonFieldName)
	if err := v.RegisterValidation("roomname", validRoomName); err != nil {
		log.Fatal("Failed to register room name validation", "error", err)
	}

	return &RoomValidator{validate: v, log: log}
}

func jsonFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// priceValue lets numeric tags such as gte compare decimal prices.
func priceValue(field reflect.Value) any {
	price, ok := field.Interface().(model.Price)
	if !ok {
		return nil
	}
	value, _ := price.Float64()
	return value
}

// validRoomName rejects characters that would break the
// /rooms/name/:name route.
func validRoomName(fl validator.FieldLevel) bool {
	for _, r := range fl.Field().String() {
		if !unicode.IsPrint(r) || strings.ContainsRune("/?#", r) {
			return false
		}
	}
	return true
}

func (v *RoomValidator) ValidateRoom(room *model.RoomCreate) error {
	return v.check(room)
}

// ValidateBookingRequest only checks presence. Range ordering is reported
// separately as an invalid range.
func (v *RoomValidator) ValidateBookingRequest(req *model.BookingRequest) error {
	return v.check(req)
}

func (v *RoomValidator) check(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	out := make(ValidationErrors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		message := fe.Error()
		if format, ok := tagMessages[fe.Tag()]; ok {
			if strings.Count(format, "%s") == 2 {
				message = fmt.Sprintf(format, fe.Field(), fe.Param())
			} else {
				message = fmt.Sprintf(format, fe.Field())
			}
		}
		out = append(out, ValidationError{Field: fe.Field(), Message: message})
	}
	return out
}
