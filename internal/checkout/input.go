package checkout

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// AddressInput is the shipping address section of the checkout form.
type AddressInput struct {
	Street    string `json:"street" validate:"required"`
	Apartment string `json:"apartment" validate:"omitempty,max=100"`
	City      string `json:"city" validate:"required"`
	State     string `json:"state" validate:"required"`
	ZipCode   string `json:"zipCode" validate:"required"`
	Country   string `json:"country" validate:"required"`
}

// CustomerInput is the buyer section of the checkout form.
type CustomerInput struct {
	Email     string       `json:"email" validate:"required,email"`
	FirstName string       `json:"firstName" validate:"required,max=100"`
	LastName  string       `json:"lastName" validate:"required,max=100"`
	Phone     string       `json:"phone" validate:"required,e164"`
	Address   AddressInput `json:"address" validate:"required"`
}

// PaymentDetailsInput carries method-specific fields. cryptoCurrency is only
// required when the crypto method is selected; that rule is enforced in the
// service because it spans two fields.
type PaymentDetailsInput struct {
	CryptoCurrency string `json:"cryptoCurrency" validate:"omitempty,min=2,max=10"`
}

// Input is the checkout submission payload.
type Input struct {
	CartID         string              `json:"cartId" validate:"required"`
	Customer       CustomerInput       `json:"customer" validate:"required"`
	PaymentMethod  string              `json:"paymentMethod" validate:"required"`
	PaymentDetails PaymentDetailsInput `json:"paymentDetails"`
	AgeConfirmed   bool                `json:"ageConfirmed" validate:"eq=true"`
	Note           string              `json:"note" validate:"omitempty,max=2000"`
}

// NewValidator builds the validator used for checkout submissions. Field
// names in validation errors follow the JSON tags so clients can map them
// back onto form fields.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidationError carries per-field messages for a rejected submission.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "checkout: invalid input" }

func singleFieldError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// fieldErrors flattens validator errors into a field -> message map keyed by
// the JSON path relative to the payload root.
func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": "invalid payload"}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "Input.")
		fields[path] = messageFor(fe)
	}
	return fields
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "e164":
		return "must be a phone number in E.164 format"
	case "eq":
		if fe.Field() == "ageConfirmed" {
			return "must be confirmed"
		}
		return "has an unexpected value"
	case "max":
		return "is too long"
	case "min":
		return "is too short"
	default:
		return "is invalid"
	}
}
