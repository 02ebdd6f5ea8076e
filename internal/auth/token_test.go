package auth_test

import (
	"time"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var _ = Describe("Verifier", func() {
	var (
		now      time.Time
		verifier *auth.Verifier
	)

	BeforeEach(func() {
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		verifier = auth.NewVerifier(testSecret, "invoice-management", time.Hour).
			WithClock(func() time.Time { return now })
	})

	It("round-trips a generated token", func() {
		token, err := verifier.GenerateAccessToken("user-1", "a@example.com")
		Expect(err).NotTo(HaveOccurred())

		claims, err := verifier.ValidateToken(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.User()).To(Equal(&auth.User{ID: "user-1", Email: "a@example.com"}))
	})

	It("reports expired tokens", func() {
		token, err := verifier.GenerateAccessToken("user-1", "")
		Expect(err).NotTo(HaveOccurred())

		now = now.Add(2 * time.Hour)
		_, err = verifier.ValidateToken(token)
		Expect(err).To(MatchError(internal.ErrTokenExpired))
	})

	It("rejects tokens signed with another secret", func() {
		other := auth.NewVerifier("another-secret-another-secret-xx", "invoice-management", time.Hour).
			WithClock(func() time.Time { return now })
		token, err := other.GenerateAccessToken("user-1", "")
		Expect(err).NotTo(HaveOccurred())

		_, err = verifier.ValidateToken(token)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("rejects tokens from another issuer", func() {
		other := auth.NewVerifier(testSecret, "someone-else", time.Hour).
			WithClock(func() time.Time { return now })
		token, err := other.GenerateAccessToken("user-1", "")
		Expect(err).NotTo(HaveOccurred())

		_, err = verifier.ValidateToken(token)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("rejects tokens without an expiry", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
			UserID:           "user-1",
			RegisteredClaims: jwt.RegisteredClaims{Issuer: "invoice-management"},
		}).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = verifier.ValidateToken(token)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("falls back to the subject claim", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &auth.Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "invoice-management",
				Subject:   "user-from-sub",
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			},
		}).SignedString([]byte(testSecret))
		Expect(err).NotTo(HaveOccurred())

		claims, err := verifier.ValidateToken(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.User().ID).To(Equal("user-from-sub"))
	})

	It("rejects garbage", func() {
		_, err := verifier.ValidateToken("not-a-token")
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})
})
