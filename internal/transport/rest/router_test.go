package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/category"
	invoiceDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/internal/ocr"
	"github.com/frahmantamala/invoice-management/internal/transport"
	"github.com/frahmantamala/invoice-management/internal/transport/rest"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type memStore struct {
	mu       sync.Mutex
	invoices []*invoiceDatamodel.Invoice
}

func (s *memStore) Load(context.Context) ([]*invoiceDatamodel.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invoices, nil
}

func (s *memStore) Save(_ context.Context, invoices []*invoiceDatamodel.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invoices = invoices
	return nil
}

type pinger struct{ err error }

func (p *pinger) Ping(context.Context) error { return p.err }

var _ = Describe("Router", func() {
	var (
		router   *chi.Mux
		verifier *auth.Verifier
		sessions *invoice.Sessions
		store    *pinger
	)

	BeforeEach(func() {
		log := logger.Discard()
		store = &pinger{}
		base := transport.NewBaseHandler(log)
		verifier = auth.NewVerifier(testSecret, "invoice-management", time.Hour)
		registry := category.NewDefaultRegistry(log)

		stores := map[string]*memStore{}
		var mu sync.Mutex
		sessions = invoice.NewSessions(invoice.Dependencies{
			Stores: func(userID string) invoice.Store {
				mu.Lock()
				defer mu.Unlock()
				if stores[userID] == nil {
					stores[userID] = &memStore{}
				}
				return stores[userID]
			},
			Extractor:   ocr.NoopExtractor{},
			Categories:  registry,
			MaxFileSize: 1 << 20,
		}, log)

		router = chi.NewRouter()
		rest.RegisterAllRoutes(router, rest.Handlers{
			Auth:     auth.NewHandler(base, verifier),
			Invoice:  invoice.NewHandler(base, sessions, 1<<20),
			Category: category.NewHandler(base, registry),
		}, rest.Options{
			AllowedOrigins: "*",
			Health:         map[string]rest.Pinger{"storage": store},
			MetricsEnabled: true,
			Logger:         log,
		})
	})

	AfterEach(func() {
		sessions.Close()
	})

	do := func(method, path, token, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	It("serves ping and health without a token", func() {
		Expect(do(http.MethodGet, "/api/v1/ping", "", "").Code).To(Equal(http.StatusOK))

		w := do(http.MethodGet, "/api/v1/health", "", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var health rest.HealthResponse
		Expect(json.Unmarshal(w.Body.Bytes(), &health)).To(Succeed())
		Expect(health.Components).To(HaveKey("storage"))
	})

	It("reports unavailable when a component fails", func() {
		store.err = errors.New("disk gone")

		w := do(http.MethodGet, "/api/v1/health", "", "")
		Expect(w.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(w.Body.String()).To(ContainSubstring("disk gone"))
	})

	It("serves categories publicly", func() {
		w := do(http.MethodGet, "/api/v1/categories", "", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("Office Supplies"))
	})

	It("rejects invoice requests without a token", func() {
		w := do(http.MethodGet, "/api/v1/invoices", "", "")
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("echoes a trace id header", func() {
		w := do(http.MethodGet, "/api/v1/ping", "", "")
		Expect(w.Header().Get("X-Trace-ID")).NotTo(BeEmpty())
	})

	It("answers CORS preflight", func() {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/invoices", nil)
		req.Header.Set("Origin", "http://app.local")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(w.Header().Get("Access-Control-Allow-Origin")).To(Equal("http://app.local"))
	})

	It("runs an invoice through create, approve and pay", func() {
		token, err := verifier.GenerateAccessToken("user-1", "user@example.com")
		Expect(err).NotTo(HaveOccurred())

		w := do(http.MethodPost, "/api/v1/invoices", token, `{
			"vendor_name": "Acme Corp",
			"amount": 1250.50,
			"category": "software",
			"invoice_date": "2024-03-01",
			"due_date": "2024-03-31"
		}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		var created invoice.Invoice
		Expect(json.Unmarshal(w.Body.Bytes(), &created)).To(Succeed())
		Expect(created.Category).To(Equal("Software"))
		Expect(created.Status).To(Equal(invoice.StatusPending))

		Expect(do(http.MethodPost, "/api/v1/invoices/"+created.ID+"/approve", token, "").Code).To(Equal(http.StatusOK))

		w = do(http.MethodPost, "/api/v1/invoices/"+created.ID+"/pay", token, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		var paid invoice.Invoice
		Expect(json.Unmarshal(w.Body.Bytes(), &paid)).To(Succeed())
		Expect(paid.Status).To(Equal(invoice.StatusPaid))
		Expect(paid.PaymentDate).NotTo(BeNil())

		w = do(http.MethodGet, "/api/v1/invoices/stats", token, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"paid_count":1`))
	})

	It("keeps collections separate per user", func() {
		alice, _ := verifier.GenerateAccessToken("alice", "")
		bob, _ := verifier.GenerateAccessToken("bob", "")

		w := do(http.MethodPost, "/api/v1/invoices", alice, `{"vendor_name":"Acme","amount":10,"category":"Other","invoice_date":"2024-01-01"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = do(http.MethodGet, "/api/v1/invoices", bob, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"count":0`))
	})

	It("signs a user out and reloads their invoices on the next request", func() {
		alice, _ := verifier.GenerateAccessToken("alice", "")
		bob, _ := verifier.GenerateAccessToken("bob", "")

		w := do(http.MethodPost, "/api/v1/invoices", alice, `{"vendor_name":"Acme","amount":10,"category":"Other","invoice_date":"2024-01-01"}`)
		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(do(http.MethodGet, "/api/v1/invoices", bob, "").Code).To(Equal(http.StatusOK))
		Expect(sessions.Len()).To(Equal(2))

		Expect(do(http.MethodPost, "/api/v1/auth/signout", alice, "").Code).To(Equal(http.StatusNoContent))
		Expect(sessions.Len()).To(Equal(1))

		w = do(http.MethodGet, "/api/v1/invoices", alice, "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring(`"count":1`))
		Expect(sessions.Len()).To(Equal(2))
	})

	It("requires a token to sign out", func() {
		Expect(do(http.MethodPost, "/api/v1/auth/signout", "", "").Code).To(Equal(http.StatusUnauthorized))
	})

	It("exposes prometheus metrics", func() {
		do(http.MethodGet, "/api/v1/ping", "", "")
		w := do(http.MethodGet, "/metrics", "", "")
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("invoice_management_http_requests_total"))
	})
})
