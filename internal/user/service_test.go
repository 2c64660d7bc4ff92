package user_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	errors "github.com/frahmantamala/budget-ledger/internal"
	coreuser "github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/user"
)

type mockRepository struct {
	users  map[int64]*coreuser.User
	nextID int64
	err    error
}

func newMockRepository() *mockRepository {
	return &mockRepository{users: make(map[int64]*coreuser.User), nextID: 1}
}

func (m *mockRepository) add(u *coreuser.User) *coreuser.User {
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return u
}

func (m *mockRepository) Create(_ context.Context, u *coreuser.User) error {
	if m.err != nil {
		return m.err
	}
	m.add(u)
	return nil
}

func (m *mockRepository) FindByID(_ context.Context, id int64) (*coreuser.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return nil, errors.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockRepository) GetByEmail(_ context.Context, email string) (*coreuser.User, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errors.ErrUserNotFound
}

func (m *mockRepository) List(_ context.Context, _, _ int) ([]*coreuser.User, error) {
	var out []*coreuser.User
	for id := int64(1); id < m.nextID; id++ {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockRepository) Update(_ context.Context, u *coreuser.User) error {
	if _, ok := m.users[u.ID]; !ok {
		return errors.ErrUserNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

type reverseHasher struct{}

func (reverseHasher) HashPassword(password string) (string, error) {
	return "hashed:" + strings.ToUpper(password), nil
}

var _ = Describe("Service", func() {
	var (
		ctx     context.Context
		repo    *mockRepository
		service *user.Service
		admin   *coreuser.User
		member  *coreuser.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockRepository()
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
		service = user.NewService(repo, reverseHasher{}, logger)

		admin = repo.add(&coreuser.User{Email: "admin@example.com", Name: "Admin", Role: coreuser.RoleAdmin, IsActive: true})
		member = repo.add(&coreuser.User{Email: "member@example.com", Name: "Member", Role: coreuser.RoleUser, Department: "Ops", IsActive: true})
	})

	Describe("Me", func() {
		It("returns the stored profile", func() {
			profile, err := service.Me(ctx, member)

			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Email).To(Equal("member@example.com"))
			Expect(profile.Department).To(Equal("Ops"))
		})
	})

	Describe("CreateUser", func() {
		var dto user.CreateUserDTO

		BeforeEach(func() {
			dto = user.CreateUserDTO{Email: " New@Example.com ", Name: "New", Password: "correct-horse", Department: "Finance"}
		})

		It("creates an active user with a hashed password", func() {
			profile, err := service.CreateUser(ctx, admin, dto)

			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Email).To(Equal("new@example.com"))
			Expect(profile.Role).To(Equal(coreuser.RoleUser))
			Expect(profile.IsActive).To(BeTrue())
			Expect(repo.users[profile.ID].PasswordHash).To(Equal("hashed:CORRECT-HORSE"))
		})

		It("refuses non-admins", func() {
			_, err := service.CreateUser(ctx, member, dto)
			Expect(err).To(MatchError(errors.ErrNotPermitted))
		})

		It("refuses a taken email", func() {
			dto.Email = "member@example.com"
			_, err := service.CreateUser(ctx, admin, dto)
			Expect(err).To(MatchError(errors.ErrEmailTaken))
		})

		It("validates the payload", func() {
			dto.Password = "short"
			dto.Role = "owner"

			_, err := service.CreateUser(ctx, admin, dto)

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			details := appErr.Details.(errors.ValidationErrors)
			Expect(details.Errors).To(HaveLen(2))
		})

		It("surfaces store failures as dependency errors", func() {
			repo.err = fmt.Errorf("db down")

			_, err := service.CreateUser(ctx, admin, dto)

			appErr, ok := errors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(errors.ErrCodeStoreFailure))
		})
	})

	Describe("UpdateUser", func() {
		It("promotes a user to manager", func() {
			role := "manager"

			profile, err := service.UpdateUser(ctx, admin, member.ID, user.UpdateUserDTO{Role: &role})

			Expect(err).NotTo(HaveOccurred())
			Expect(profile.Role).To(Equal(coreuser.RoleManager))
			Expect(repo.users[member.ID].Role).To(Equal(coreuser.RoleManager))
		})

		It("deactivates a user", func() {
			inactive := false

			profile, err := service.UpdateUser(ctx, admin, member.ID, user.UpdateUserDTO{IsActive: &inactive})

			Expect(err).NotTo(HaveOccurred())
			Expect(profile.IsActive).To(BeFalse())
		})

		It("does not let an admin lock themselves out", func() {
			inactive := false

			_, err := service.UpdateUser(ctx, admin, admin.ID, user.UpdateUserDTO{IsActive: &inactive})

			Expect(err).To(MatchError(errors.ErrInvalidTransition))
		})

		It("reports unknown users", func() {
			name := "Ghost"
			_, err := service.UpdateUser(ctx, admin, 99, user.UpdateUserDTO{Name: &name})
			Expect(err).To(MatchError(errors.ErrUserNotFound))
		})
	})

	Describe("ListUsers", func() {
		It("lists every user for admins", func() {
			profiles, err := service.ListUsers(ctx, admin, 20, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(profiles).To(HaveLen(2))
		})

		It("refuses managers", func() {
			manager := &coreuser.User{ID: 7, Role: coreuser.RoleManager, IsActive: true}
			_, err := service.ListUsers(ctx, manager, 20, 0)
			Expect(err).To(MatchError(errors.ErrNotPermitted))
		})
	})
})
