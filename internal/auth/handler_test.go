package auth_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/transport"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("AuthMiddleware", func() {
	var (
		verifier *auth.Verifier
		handler  *auth.Handler
		seenUser string
		next     http.Handler
	)

	BeforeEach(func() {
		seenUser = ""
		verifier = auth.NewVerifier(testSecret, "invoice-management", time.Hour)
		handler = auth.NewHandler(transport.NewBaseHandler(logger.Discard()), verifier)
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seenUser = internal.UserIDFromContext(r.Context())
			u, ok := auth.UserFromContext(r.Context())
			Expect(ok).To(BeTrue())
			Expect(u.ID).To(Equal(seenUser))
			w.WriteHeader(http.StatusNoContent)
		})
	})

	It("rejects requests without a token", func() {
		w := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(seenUser).To(BeEmpty())
	})

	It("rejects invalid tokens", func() {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer nope")
		w := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(w, r)

		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(w.Body.String()).To(ContainSubstring("INVALID_TOKEN"))
	})

	It("puts the user into the request context", func() {
		token, err := verifier.GenerateAccessToken("user-42", "")
		Expect(err).NotTo(HaveOccurred())

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.AuthMiddleware(next).ServeHTTP(w, r)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(seenUser).To(Equal("user-42"))
	})
})
