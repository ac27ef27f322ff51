package invoicing

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/optica/backend/internal/domain/shared"
)

var (
	requestValidator     *validator.Validate
	requestValidatorOnce sync.Once
)

// RegisterValidations installs the JSON field naming and the cross-field
// request rules on a validator. The HTTP layer registers them on the gin
// binding engine so both layers report identical field errors.
func RegisterValidations(v *validator.Validate) {
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})
	v.RegisterStructValidation(validateLineInput, CreateInvoiceLineInput{})
	v.RegisterStructValidation(validateDiscountInput, CreateInvoiceDiscountInput{})
	v.RegisterStructValidation(validatePaymentRequest, RegisterPaymentRequest{})
}

func validatorInstance() *validator.Validate {
	requestValidatorOnce.Do(func() {
		v := validator.New()
		v.SetTagName("binding")
		RegisterValidations(v)
		requestValidator = v
	})
	return requestValidator
}

// Validate checks a request against its schema and returns a
// *shared.ValidationError listing every failing field, or nil.
func Validate(req any) error {
	if err := validatorInstance().Struct(req); err != nil {
		return ToValidationError(err)
	}
	return nil
}

// ToValidationError converts validator errors to a ValidationError.
// Other errors (malformed JSON, wrong types) become a single body error.
func ToValidationError(err error) *shared.ValidationError {
	out := shared.NewValidationError()

	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			out.Add(fieldPath(fe), validationMessage(fe))
		}
		return out
	}

	var existing *shared.ValidationError
	if errors.As(err, &existing) {
		return existing
	}

	out.Add("body", err.Error())
	return out
}

// fieldPath drops the root struct name: CreateInvoiceRequest.lines[0].quantity -> lines[0].quantity
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required"
	case "required_for_manual":
		return "Required for lines without a catalog product"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "Must contain at least " + fe.Param() + " item(s)"
		}
		if fe.Kind() == reflect.String {
			return "Must be at least " + fe.Param() + " characters"
		}
		return "Must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return "Must be at most " + fe.Param() + " characters"
		}
		return "Must be at most " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	case "gt":
		return "Must be greater than " + fe.Param()
	case "gte":
		return "Must be greater than or equal to " + fe.Param()
	case "non_negative":
		return "Must not be negative"
	case "positive":
		return "Must be greater than 0"
	default:
		return "Invalid value"
	}
}

func validateLineInput(sl validator.StructLevel) {
	line := sl.Current().Interface().(CreateInvoiceLineInput)
	if line.ProductID == nil {
		if strings.TrimSpace(line.Description) == "" {
			sl.ReportError(line.Description, "description", "Description", "required_for_manual", "")
		}
		if line.UnitPrice == nil {
			sl.ReportError(line.UnitPrice, "unit_price", "UnitPrice", "required_for_manual", "")
		}
	}
	if line.UnitPrice != nil && line.UnitPrice.IsNegative() {
		sl.ReportError(line.UnitPrice, "unit_price", "UnitPrice", "non_negative", "")
	}
}

func validateDiscountInput(sl validator.StructLevel) {
	d := sl.Current().Interface().(CreateInvoiceDiscountInput)
	if d.Amount != nil && !d.Amount.IsPositive() {
		sl.ReportError(d.Amount, "amount", "Amount", "positive", "")
	}
}

func validatePaymentRequest(sl validator.StructLevel) {
	p := sl.Current().Interface().(RegisterPaymentRequest)
	if !p.Amount.IsPositive() {
		sl.ReportError(p.Amount, "amount", "Amount", "positive", "")
	}
}
