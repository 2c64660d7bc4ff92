package cmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/budget-ledger/internal"
	"github.com/frahmantamala/budget-ledger/internal/budget"
	"github.com/frahmantamala/budget-ledger/internal/currency"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

const testConfig = `
http_server:
  port: 9090
  allowed_origins: http://localhost:3000
database:
  source: postgres://localhost/test
  max_open_conns: 4
  max_idle_conns: 2
security:
  jwt_access_secret: access-secret-access-secret-access-secret
  jwt_refresh_secret: refresh-secret-refresh-secret-refresh-secret
  access_token_duration: 15m
  refresh_token_duration: 24h
currency:
  base: eur
  static_rates:
    usd: "1.08"
alerts:
  mode: level
`

var _ = Describe("loadConfig", func() {
	It("reads config.yml and fills defaults", func() {
		dir := GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(testConfig), 0o600)).To(Succeed())

		cfg, err := loadConfig(dir)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Server.Port).To(Equal(9090))
		Expect(cfg.Server.Origins()).To(ConsistOf("http://localhost:3000"))
		Expect(cfg.Security.AccessTokenDuration).To(Equal(15 * time.Minute))
		Expect(cfg.Currency.Base).To(Equal("EUR"))
		Expect(cfg.Notification.Driver).To(Equal(internal.NotificationDriverInProcess))
		Expect(cfg.Alerts.Mode).To(Equal("level"))
	})

	It("fails when the file is missing", func() {
		_, err := loadConfig(GinkgoT().TempDir())
		Expect(err).To(MatchError(ContainSubstring("error reading config")))
	})

	It("fails validation for short secrets", func() {
		dir := GinkgoT().TempDir()
		broken := `
database:
  source: postgres://localhost/test
security:
  jwt_access_secret: short
  jwt_refresh_secret: short
currency:
  static_rates:
    eur: "0.9"
`
		Expect(os.WriteFile(filepath.Join(dir, "config.yml"), []byte(broken), 0o600)).To(Succeed())

		_, err := loadConfig(dir)
		Expect(err).To(MatchError(ContainSubstring("security config")))
	})
})

var _ = Describe("rateSource", func() {
	It("quotes static rates against the base currency", func() {
		source, err := rateSource(internal.CurrencyConfig{
			Base:        "USD",
			StaticRates: map[string]string{"eur": "0.5"},
		})
		Expect(err).NotTo(HaveOccurred())

		rates, err := source.FetchRates(context.Background(), "USD")
		Expect(err).NotTo(HaveOccurred())
		Expect(rates["EUR"].String()).To(Equal("0.5"))
		Expect(rates["USD"].String()).To(Equal("1"))
	})

	It("rejects a malformed static rate", func() {
		_, err := rateSource(internal.CurrencyConfig{
			Base:        "USD",
			StaticRates: map[string]string{"EUR": "abc"},
		})
		Expect(err).To(MatchError(ContainSubstring("invalid static rates")))
	})

	It("falls back to the HTTP source", func() {
		source, err := rateSource(internal.CurrencyConfig{Base: "USD", APIURL: "http://rates.local", Timeout: time.Second})
		Expect(err).NotTo(HaveOccurred())
		Expect(source).To(BeAssignableToTypeOf(&currency.HTTPRateSource{}))
	})
})

var _ = Describe("rateHealthCheck", func() {
	It("fails until rates are loaded", func() {
		lg := slog.New(slog.NewTextHandler(io.Discard, nil))
		source, err := currency.NewStaticSource(map[string]string{"USD": "1", "EUR": "0.9"})
		Expect(err).NotTo(HaveOccurred())

		n := currency.NewNormalizer(source, "USD", 0, lg)
		check := rateHealthCheck(n)
		Expect(check(context.Background())).To(MatchError("no exchange rates loaded"))

		Expect(n.Refresh(context.Background())).To(Succeed())
		Expect(check(context.Background())).To(Succeed())
	})
})

var _ = Describe("previousValues", func() {
	var b *budget.Budget

	BeforeEach(func() {
		b = &budget.Budget{ID: 7, Amount: decimal.NewFromInt(1000), Currency: "USD", AlertThreshold: 80}
		previousAmount, previousCurrency, previousThreshold = "", "", 0
	})

	AfterEach(func() {
		previousAmount, previousCurrency, previousThreshold = "", "", 0
	})

	It("uses the current budget values when no flag is given", func() {
		amount, currency, threshold := previousValues(b, false)
		Expect(amount).To(Equal("1000"))
		Expect(currency).To(Equal("USD"))
		Expect(threshold).To(Equal(80))
	})

	It("accepts an explicit zero threshold", func() {
		previousThreshold = 0
		_, _, threshold := previousValues(b, true)
		Expect(threshold).To(Equal(0))
	})

	It("applies the overrides that were set", func() {
		previousAmount, previousCurrency, previousThreshold = "500", "EUR", 50
		amount, currency, threshold := previousValues(b, true)
		Expect(amount).To(Equal("500"))
		Expect(currency).To(Equal("EUR"))
		Expect(threshold).To(Equal(50))
	})
})
