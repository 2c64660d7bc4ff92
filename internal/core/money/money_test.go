package money_test

import (
	"github.com/frahmantamala/budget-ledger/internal/core/money"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Money", func() {
	d := decimal.RequireFromString

	DescribeTable("Round",
		func(amount, currency, expected string) {
			Expect(money.Round(d(amount), currency).String()).To(Equal(expected))
		},
		Entry("two decimals", "110.005", "USD", "110.01"),
		Entry("half away from zero when negative", "-0.125", "EUR", "-0.13"),
		Entry("zero-decimal currency", "1234.5", "JPY", "1235"),
		Entry("three-decimal currency", "1.23456", "KWD", "1.235"),
		Entry("lower-case code", "9.999", "jpy", "10"),
	)

	DescribeTable("Percentage",
		func(part, whole string, expected int64) {
			Expect(money.Percentage(d(part), d(whole))).To(Equal(expected))
		},
		Entry("exact", "850", "1000", int64(85)),
		Entry("rounds half up", "1", "200", int64(1)),
		Entry("over budget", "1500", "1000", int64(150)),
		Entry("zero budget", "10", "0", int64(0)),
		Entry("nothing spent", "0", "1000", int64(0)),
	)

	It("should recognise ISO codes", func() {
		Expect(money.IsCurrencyCode("USD")).To(BeTrue())
		Expect(money.IsCurrencyCode("usd")).To(BeFalse())
		Expect(money.IsCurrencyCode("US")).To(BeFalse())
		Expect(money.IsCurrencyCode("US1")).To(BeFalse())
	})

	It("should report minor units", func() {
		Expect(money.MinorUnits("USD")).To(Equal(int32(2)))
		Expect(money.MinorUnits("JPY")).To(Equal(int32(0)))
		Expect(money.MinorUnits("BHD")).To(Equal(int32(3)))
	})
})
