package internal_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/frahmantamala/budget-ledger/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AppError", func() {
	It("should match sentinels through copies and wrapping", func() {
		err := fmt.Errorf("approve: %w", internal.ErrNotPending.WithCause(errors.New("row locked")))

		Expect(errors.Is(err, internal.ErrNotPending)).To(BeTrue())
		Expect(errors.Is(err, internal.ErrBudgetInactive)).To(BeFalse())
	})

	It("should not mutate sentinels", func() {
		_ = internal.ErrRateUnavailable.WithMessage("exchange rate unavailable for XYZ")
		Expect(internal.ErrRateUnavailable.Message).To(Equal("exchange rate unavailable"))
	})

	It("should hide causes from the JSON body", func() {
		appErr := internal.NewInternalError("internal server error", errors.New("pq: password authentication failed"))
		status, body := appErr.ToHTTPResponse()

		raw, err := json.Marshal(body)
		Expect(err).NotTo(HaveOccurred())
		Expect(status).To(Equal(http.StatusInternalServerError))
		Expect(string(raw)).NotTo(ContainSubstring("password"))
		Expect(string(raw)).To(ContainSubstring(`"code":"INTERNAL_ERROR"`))
	})

	It("should keep forbidden errors generic", func() {
		Expect(internal.ErrInvalidActor.Message).To(Equal("not permitted"))
		Expect(internal.ErrInvalidActor.StatusCode).To(Equal(http.StatusForbidden))
	})

	It("should join field messages", func() {
		appErr := internal.NewValidationError("Validation failed", internal.ErrCodeValidationFailed).
			WithDetails(internal.ValidationErrors{Errors: []internal.ValidationError{
				{Field: "amount", Message: "amount must be greater than 0"},
				{Field: "currency", Message: "currency is required"},
			}})

		Expect(appErr.GetDetailedMessage()).To(Equal("amount must be greater than 0; currency is required"))
		Expect(appErr.Error()).To(Equal("amount must be greater than 0"))
	})

	Describe("StoreError", func() {
		It("should pass app errors through", func() {
			Expect(internal.StoreError("get budget", internal.ErrBudgetNotFound)).To(MatchError(internal.ErrBudgetNotFound))
		})

		It("should wrap driver errors as dependency failures", func() {
			cause := errors.New("connection refused")
			appErr := internal.StoreError("get budget", cause)

			Expect(appErr.Code).To(Equal(internal.ErrCodeStoreFailure))
			Expect(appErr.StatusCode).To(Equal(http.StatusServiceUnavailable))
			Expect(errors.Is(appErr, cause)).To(BeTrue())
		})
	})
})
