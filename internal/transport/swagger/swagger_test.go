package swagger_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"

	"github.com/frahmantamala/invoice-management/internal/transport/swagger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const apiDocument = "../../../api/openapi.yml"

var _ = Describe("OpenAPI document", func() {
	It("loads and validates the shipped document", func() {
		doc, err := swagger.LoadDocument(context.Background(), apiDocument)
		Expect(err).NotTo(HaveOccurred())
		Expect(doc.Paths.Find("/invoices/{id}/pay")).NotTo(BeNil())
		Expect(doc.Paths.Find("/invoices/upload")).NotTo(BeNil())
		Expect(doc.Paths.Find("/auth/signout")).NotTo(BeNil())
	})

	It("rejects a broken document", func() {
		path := filepath.Join(GinkgoT().TempDir(), "broken.yml")
		Expect(os.WriteFile(path, []byte("openapi: 3.0.3\ninfo:\n  title: x\n"), 0o600)).To(Succeed())

		_, err := swagger.LoadDocument(context.Background(), path)
		Expect(err).To(HaveOccurred())
	})

	It("serves the loaded document as JSON", func() {
		doc, err := swagger.LoadDocument(context.Background(), apiDocument)
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		swagger.SpecHandler(doc, apiDocument)(w, httptest.NewRequest(http.MethodGet, swagger.SpecPath, nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Header().Get("Content-Type")).To(Equal("application/json"))
		var body map[string]interface{}
		Expect(json.Unmarshal(w.Body.Bytes(), &body)).To(Succeed())
		Expect(body).To(HaveKeyWithValue("openapi", "3.0.3"))
	})

	It("falls back to the raw file without a document", func() {
		w := httptest.NewRecorder()
		swagger.SpecHandler(nil, apiDocument)(w, httptest.NewRequest(http.MethodGet, swagger.SpecPath, nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(ContainSubstring("Invoice Management API"))
	})
})
