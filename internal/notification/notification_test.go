package notification_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/budget-ledger/internal/core/events"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/notification"
)

type capturedMail struct {
	to      notification.Recipient
	subject string
	body    string
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []capturedMail
	err   error
	delay time.Duration
}

func (m *fakeMailer) Deliver(_ context.Context, to notification.Recipient, subject, body string) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, capturedMail{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type sentNotification struct {
	recipient notification.Recipient
	kind      notification.Kind
	payload   map[string]interface{}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (s *recordingSender) Send(_ context.Context, r notification.Recipient, kind notification.Kind, payload map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, sentNotification{recipient: r, kind: kind, payload: payload})
	return nil
}

type fakeUsers map[int64]*user.User

func (f fakeUsers) FindByID(_ context.Context, id int64) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, fmt.Errorf("user %d not found", id)
	}
	return u, nil
}

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

var _ = Describe("Renderer", func() {
	var renderer *notification.Renderer

	BeforeEach(func() {
		var err error
		renderer, err = notification.NewRenderer()
		Expect(err).NotTo(HaveOccurred())
	})

	It("renders a budget alert", func() {
		msg := notification.NewMessage(
			notification.Recipient{UserID: 1, Email: "owner@example.com", Name: "Dana"},
			notification.KindBudgetAlert,
			map[string]interface{}{
				"budget_name":      "Marketing Q1",
				"usage_percentage": 85,
				"alert_threshold":  80,
				"spent":            "850",
				"amount":           "1000",
				"remaining":        "150",
				"currency":         "USD",
			},
		)

		subject, body, err := renderer.Render(msg)

		Expect(err).NotTo(HaveOccurred())
		Expect(subject).To(Equal("Budget alert: Marketing Q1 is at 85%"))
		Expect(body).To(ContainSubstring("Hi Dana"))
		Expect(body).To(ContainSubstring("Marketing Q1"))
		Expect(body).To(ContainSubstring("850 USD"))
	})

	It("escapes user supplied values in the body", func() {
		msg := notification.NewMessage(
			notification.Recipient{Email: "a@example.com", Name: "A"},
			notification.KindExpenseRejected,
			map[string]interface{}{"title": "<script>x</script>", "reason": "dup", "amount": "5", "currency": "EUR"},
		)

		_, body, err := renderer.Render(msg)
		Expect(err).NotTo(HaveOccurred())
		Expect(body).NotTo(ContainSubstring("<script>"))
		Expect(body).To(ContainSubstring("Reason: dup"))
	})

	It("fails on unknown kinds", func() {
		_, _, err := renderer.Render(notification.Message{Kind: "weekly_digest"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Pool", func() {
	var (
		mailer *fakeMailer
		pool   *notification.Pool
	)

	BeforeEach(func() {
		renderer, err := notification.NewRenderer()
		Expect(err).NotTo(HaveOccurred())
		mailer = &fakeMailer{}
		deliverer := notification.NewDeliverer(renderer, mailer, testLogger)
		pool = notification.NewPool(notification.PoolConfig{MaxWorkers: 2, JobQueueSize: 10}, deliverer.Deliver, testLogger)
	})

	AfterEach(func() {
		pool.Shutdown()
	})

	It("delivers sent notifications on its workers", func() {
		recipient := notification.Recipient{UserID: 3, Email: "sub@example.com", Name: "Sam"}
		for i := 0; i < 5; i++ {
			err := pool.Send(context.Background(), recipient, notification.KindExpenseApproved,
				map[string]interface{}{"title": fmt.Sprintf("expense %d", i), "amount": "10", "currency": "USD"})
			Expect(err).NotTo(HaveOccurred())
		}

		Eventually(mailer.count).Should(Equal(5))
	})

	It("keeps running when a delivery fails", func() {
		mailer.err = fmt.Errorf("smtp down")
		recipient := notification.Recipient{Email: "x@example.com"}
		Expect(pool.Send(context.Background(), recipient, notification.KindExpenseApproved, map[string]interface{}{})).To(Succeed())

		Consistently(mailer.count, "50ms").Should(BeZero())
	})

	It("refuses work after shutdown", func() {
		pool.Shutdown()
		err := pool.Submit(notification.NewMessage(notification.Recipient{Email: "x@example.com"}, notification.KindBudgetAlert, nil))
		Expect(err).To(HaveOccurred())
	})

	It("reports a full queue instead of blocking", func() {
		slow := &fakeMailer{delay: 200 * time.Millisecond}
		renderer, _ := notification.NewRenderer()
		tiny := notification.NewPool(notification.PoolConfig{MaxWorkers: 1, JobQueueSize: 1},
			notification.NewDeliverer(renderer, slow, testLogger).Deliver, testLogger)
		defer tiny.Shutdown()

		msg := notification.NewMessage(notification.Recipient{Email: "x@example.com"}, notification.KindExpenseApproved, map[string]interface{}{})
		var lastErr error
		for i := 0; i < 10; i++ {
			if err := tiny.Submit(msg); err != nil {
				lastErr = err
			}
		}
		Expect(lastErr).To(MatchError(ContainSubstring("queue full")))
	})

	It("delivers everything already queued before shutdown returns", func() {
		var (
			mu        sync.Mutex
			delivered int
		)
		deliver := func(_ context.Context, _ notification.Message) error {
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			defer mu.Unlock()
			delivered++
			return nil
		}
		draining := notification.NewPool(notification.PoolConfig{MaxWorkers: 2, JobQueueSize: 200}, deliver, testLogger)

		msg := notification.NewMessage(notification.Recipient{Email: "x@example.com"}, notification.KindBudgetAlert, nil)
		accepted := 0
		for i := 0; i < 150; i++ {
			if draining.Submit(msg) == nil {
				accepted++
			}
		}
		draining.Shutdown()

		mu.Lock()
		defer mu.Unlock()
		Expect(accepted).To(Equal(150))
		Expect(delivered).To(Equal(accepted))
		Expect(draining.Submit(msg)).To(MatchError(ContainSubstring("shut down")))
	})

	It("cancels deliveries that outlive the shutdown timeout", func() {
		deliver := func(ctx context.Context, _ notification.Message) error {
			<-ctx.Done()
			return ctx.Err()
		}
		stuck := notification.NewPool(notification.PoolConfig{MaxWorkers: 1, JobQueueSize: 5, ShutdownTimeout: 50 * time.Millisecond}, deliver, testLogger)
		msg := notification.NewMessage(notification.Recipient{Email: "x@example.com"}, notification.KindBudgetAlert, nil)
		Expect(stuck.Submit(msg)).To(Succeed())
		Expect(stuck.Submit(msg)).To(Succeed())

		started := time.Now()
		stuck.Shutdown()
		Expect(time.Since(started)).To(BeNumerically("<", time.Second))
	})
})

var _ = Describe("Message", func() {
	It("refuses payloads without a recipient email", func() {
		_, err := notification.MessageFromJSON([]byte(`{"id":"1","kind":"budget_alert","recipient":{}}`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("ReviewSubscriber", func() {
	var (
		sender     *recordingSender
		subscriber *notification.ReviewSubscriber
		budgetID   int64
	)

	BeforeEach(func() {
		sender = &recordingSender{}
		users := fakeUsers{3: {ID: 3, Email: "sub@example.com", Name: "Sam", Role: user.RoleUser, IsActive: true}}
		subscriber = notification.NewReviewSubscriber(users, sender, testLogger)
		budgetID = 10
	})

	It("notifies the submitter of a rejection with the reason", func() {
		event := events.NewExpenseChange(events.EventTypeExpenseReviewed, events.ExpenseChange{
			ExpenseID:   7,
			Title:       "Flight",
			BudgetID:    &budgetID,
			SubmittedBy: 3,
			Status:      "rejected",
			Amount:      "420",
			Currency:    "EUR",
			Reason:      "book economy",
		})

		Expect(subscriber.Handle(context.Background(), event)).To(Succeed())

		Expect(sender.sent).To(HaveLen(1))
		Expect(sender.sent[0].kind).To(Equal(notification.KindExpenseRejected))
		Expect(sender.sent[0].recipient.Email).To(Equal("sub@example.com"))
		Expect(sender.sent[0].payload).To(HaveKeyWithValue("reason", "book economy"))
	})

	It("delivers through the event bus", func() {
		bus := events.NewEventBus(testLogger)
		subscriber.Register(bus)

		event := events.NewExpenseChange(events.EventTypeExpenseReviewed, events.ExpenseChange{
			ExpenseID: 8, SubmittedBy: 3, Status: "approved", Amount: "10", Currency: "USD",
		})
		Expect(bus.Publish(context.Background(), event)).To(Succeed())
		bus.Wait()

		Expect(sender.sent).To(HaveLen(1))
		Expect(sender.sent[0].kind).To(Equal(notification.KindExpenseApproved))
	})

	It("ignores unknown submitters without failing", func() {
		event := events.NewExpenseChange(events.EventTypeExpenseReviewed, events.ExpenseChange{
			ExpenseID: 9, SubmittedBy: 99, Status: "approved",
		})
		Expect(subscriber.Handle(context.Background(), event)).To(Succeed())
		Expect(sender.sent).To(BeEmpty())
	})
})
