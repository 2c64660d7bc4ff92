package validation_test

import (
	"time"

	errors "github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func fieldsOf(appErr *errors.AppError) []string {
	details, ok := appErr.Details.(errors.ValidationErrors)
	Expect(ok).To(BeTrue())
	fields := make([]string, 0, len(details.Errors))
	for _, e := range details.Errors {
		fields = append(fields, e.Field)
	}
	return fields
}

var _ = Describe("ValidationBuilder", func() {
	It("should pass valid input", func() {
		v := validation.NewValidator()
		v.Field("title", "Taxi").Required().MaxLength(255)
		v.Field("amount", decimal.RequireFromString("150.00")).Positive(errors.ErrCodeInvalidAmount)
		v.Field("currency", "USD").Required().Currency()
		v.Field("payment_method", "card").OneOf("cash", "card", "bank_transfer", "other")
		v.Field("alert_threshold", 80).IntRange(0, 100, errors.ErrCodeInvalidThreshold)

		Expect(v.Validate()).To(BeNil())
	})

	It("should collect every failing field", func() {
		v := validation.NewValidator()
		v.Field("title", "  ").Required()
		v.Field("amount", decimal.Zero).Positive(errors.ErrCodeInvalidAmount)
		v.Field("currency", "usd").Currency()
		v.Field("alert_threshold", 120).IntRange(0, 100, errors.ErrCodeInvalidThreshold)

		appErr := v.Validate()
		Expect(appErr).NotTo(BeNil())
		Expect(appErr.Code).To(Equal(errors.ErrCodeValidationFailed))
		Expect(fieldsOf(appErr)).To(Equal([]string{"title", "amount", "currency", "alert_threshold"}))
	})

	It("should keep the specific code of each failure", func() {
		v := validation.NewValidator()
		v.Field("amount", decimal.NewFromInt(-1)).NonNegative(errors.ErrCodeInvalidAmount)

		details := v.Validate().Details.(errors.ValidationErrors)
		Expect(details.Errors[0].Code).To(Equal(string(errors.ErrCodeInvalidAmount)))
	})

	It("should ignore empty optional values", func() {
		v := validation.NewValidator()
		v.Field("color", "").HexColor()
		v.Field("role", "").OneOf("user", "manager", "admin")
		v.Field("email", "").Email()

		Expect(v.Validate()).To(BeNil())
	})

	It("should check formats", func() {
		v := validation.NewValidator()
		v.Field("color", "red").HexColor()
		v.Field("email", "not-an-address").Email()
		v.Field("expense_date", time.Now().Add(48*time.Hour)).NotFuture()

		Expect(fieldsOf(v.Validate())).To(Equal([]string{"color", "email", "expense_date"}))
	})

	It("should run custom validators", func() {
		v := validation.NewValidator()
		v.Field("end_date", "x").Custom(func(interface{}) *errors.AppError {
			return errors.ErrInvalidDateRange
		})

		details := v.Validate().Details.(errors.ValidationErrors)
		Expect(details.Errors[0].Code).To(Equal(string(errors.ErrCodeInvalidDateRange)))
	})
})
