package category_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/frahmantamala/budget-ledger/internal/auth"
	"github.com/frahmantamala/budget-ledger/internal/category"
	categoryPostgres "github.com/frahmantamala/budget-ledger/internal/category/postgres"
	categoryDatamodel "github.com/frahmantamala/budget-ledger/internal/core/datamodel/category"
	"github.com/frahmantamala/budget-ledger/internal/core/user"
	"github.com/frahmantamala/budget-ledger/internal/transport"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ = Describe("Category Handler Integration", func() {
	var (
		db      *gorm.DB
		router  *chi.Mux
		actor   *user.User
		slogger *slog.Logger
	)

	withActor := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if actor != nil {
				r = r.WithContext(auth.ContextWithUser(r.Context(), actor))
			}
			next.ServeHTTP(w, r)
		})
	}

	BeforeEach(func() {
		var err error
		slogger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&categoryDatamodel.Category{})).To(Succeed())

		repo := categoryPostgres.NewCategoryRepository(db)
		service := category.NewService(repo, slogger)
		handler := category.NewHandler(&transport.BaseHandler{Logger: slogger}, service)

		Expect(db.Create(&categoryDatamodel.Category{Name: "makan", Description: "Meals and entertainment", IsActive: true}).Error).To(Succeed())
		Expect(db.Create(&categoryDatamodel.Category{Name: "perjalanan", Description: "Business travel", IsActive: true}).Error).To(Succeed())
		inactive := &categoryDatamodel.Category{Name: "inactive", Description: "Inactive category", IsActive: true}
		Expect(db.Create(inactive).Error).To(Succeed())
		Expect(db.Model(inactive).Update("is_active", false).Error).To(Succeed())

		actor = &user.User{ID: 1, Role: user.RoleManager, IsActive: true}
		router = chi.NewRouter()
		router.Use(withActor)
		router.Get("/categories", handler.GetCategories)
		router.Post("/categories", handler.CreateCategory)
		router.Get("/categories/{id}", handler.GetCategory)
		router.Post("/categories/{id}/deactivate", handler.DeactivateCategory)
	})

	decode := func(rec *httptest.ResponseRecorder) category.CategoriesResponse {
		var response category.CategoriesResponse
		Expect(json.NewDecoder(rec.Body).Decode(&response)).To(Succeed())
		return response
	}

	It("should handle GET /categories request successfully", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("application/json"))

		response := decode(rec)
		names := make([]string, len(response.Categories))
		for i, c := range response.Categories {
			names[i] = c.Name
		}
		Expect(names).To(Equal([]string{"makan", "perjalanan"}))
	})

	It("should include inactive categories for managers on request", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories?include_inactive=true", nil))

		Expect(decode(rec).Categories).To(HaveLen(3))
	})

	It("should ignore include_inactive for employees", func() {
		actor = &user.User{ID: 2, Role: user.RoleUser, IsActive: true}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories?include_inactive=true", nil))

		Expect(decode(rec).Categories).To(HaveLen(2))
	})

	It("should create a category", func() {
		body := bytes.NewBufferString(`{"name":"kantor","description":"Office supplies","color":"#00AA00"}`)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories", body))

		Expect(rec.Code).To(Equal(http.StatusCreated))
		var created category.Category
		Expect(json.NewDecoder(rec.Body).Decode(&created)).To(Succeed())
		Expect(created.ID).To(BeNumerically(">", 0))
		Expect(created.Color).To(Equal("#00AA00"))
	})

	It("should answer 409 for a duplicate name", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString(`{"name":"makan"}`)))

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should answer 403 when an employee creates a category", func() {
		actor = &user.User{ID: 2, Role: user.RoleUser, IsActive: true}

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories", bytes.NewBufferString(`{"name":"kantor"}`)))

		Expect(rec.Code).To(Equal(http.StatusForbidden))
	})

	It("should deactivate a category", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/categories/1/deactivate", nil))
		Expect(rec.Code).To(Equal(http.StatusOK))

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
		Expect(decode(rec).Categories).To(HaveLen(1))
	})

	It("should answer 404 for an unknown category", func() {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories/99", nil))

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})
})
