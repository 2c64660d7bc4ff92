package currency_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"github.com/frahmantamala/budget-ledger/internal/currency"
)

var _ = Describe("HTTPRateSource", func() {
	var (
		server *httptest.Server
		path   string
		status int
		body   string
	)

	BeforeEach(func() {
		status = http.StatusOK
		body = `{"result":"success","base_code":"USD","conversion_rates":{"USD":1,"EUR":0.9215,"IDR":16250.5,"BAD":0}}`
		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			path = r.URL.Path
			w.WriteHeader(status)
			_, _ = w.Write([]byte(body))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	It("requests the latest table for the base and parses decimal rates", func() {
		source := currency.NewHTTPRateSource(server.URL+"/v6/", "test-key", time.Second)

		rates, err := source.FetchRates(context.Background(), "USD")

		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("/v6/test-key/latest/USD"))
		Expect(rates["EUR"].Equal(decimal.RequireFromString("0.9215"))).To(BeTrue())
		Expect(rates["IDR"].Equal(decimal.RequireFromString("16250.5"))).To(BeTrue())
		Expect(rates).NotTo(HaveKey("BAD"))
	})

	It("fails on non-200 responses", func() {
		status = http.StatusServiceUnavailable
		source := currency.NewHTTPRateSource(server.URL, "k", time.Second)

		_, err := source.FetchRates(context.Background(), "USD")
		Expect(err).To(HaveOccurred())
	})

	It("fails when the api reports an error result", func() {
		body = `{"result":"error","error-type":"invalid-key"}`
		source := currency.NewHTTPRateSource(server.URL, "k", time.Second)

		_, err := source.FetchRates(context.Background(), "USD")
		Expect(err).To(MatchError(ContainSubstring("invalid-key")))
	})
})

var _ = Describe("StaticSource", func() {
	It("rebases the table onto the requested base", func() {
		source, err := currency.NewStaticSource(map[string]string{"usd": "1", "EUR": "0.5"})
		Expect(err).NotTo(HaveOccurred())

		rates, err := source.FetchRates(context.Background(), "EUR")
		Expect(err).NotTo(HaveOccurred())
		Expect(rates["EUR"].Equal(decimal.NewFromInt(1))).To(BeTrue())
		Expect(rates["USD"].Equal(decimal.NewFromInt(2))).To(BeTrue())
	})

	It("rejects non-positive rates", func() {
		_, err := currency.NewStaticSource(map[string]string{"EUR": "0"})
		Expect(err).To(HaveOccurred())
	})
})
