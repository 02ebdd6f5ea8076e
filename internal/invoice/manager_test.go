package invoice_test

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/category"
	"github.com/frahmantamala/invoice-management/internal/core/datamodel/attachment"
	"github.com/frahmantamala/invoice-management/internal/core/events"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func amount(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func validDTO(vendor, amt string) invoice.CreateInvoiceDTO {
	return invoice.CreateInvoiceDTO{
		VendorName:  vendor,
		Amount:      amount(amt),
		Category:    "Software",
		InvoiceDate: "2024-07-01",
	}
}

func pdf() *attachment.File {
	return &attachment.File{Name: "march invoice.pdf", ContentType: "application/pdf", Size: 4, Content: []byte("%PDF")}
}

var _ = Describe("Manager", func() {
	var (
		ctx        context.Context
		store      *mockStore
		uploads    *mockUploads
		extractor  *mockExtractor
		publisher  *mockPublisher
		identity   *auth.Broadcaster
		manager    *invoice.Manager
		clock      time.Time
		frozen     bool
		storesMade []string
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = &mockStore{}
		uploads = &mockUploads{}
		extractor = &mockExtractor{text: "Acme Corp\nInvoice #INV-9\nTotal $10.00"}
		publisher = &mockPublisher{}
		clock = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)
		frozen = false
		storesMade = nil

		manager = invoice.NewManager(invoice.Dependencies{
			Stores: func(userID string) invoice.Store {
				storesMade = append(storesMade, userID)
				return store
			},
			Uploads:     uploads,
			Extractor:   extractor,
			Categories:  category.NewDefaultRegistry(logger.Discard()),
			Events:      publisher,
			MaxFileSize: 1024,
		}, logger.Discard()).WithClock(func() time.Time {
			if !frozen {
				clock = clock.Add(time.Second)
			}
			return clock
		})

		identity = auth.NewBroadcaster(auth.State{User: &auth.User{ID: "user-1"}})
		manager.Init(ctx, identity)
	})

	AfterEach(func() {
		manager.Dispose()
	})

	Describe("lifecycle", func() {
		It("loads the collection when a user becomes present", func() {
			Expect(storesMade).To(Equal([]string{"user-1"}))
		})

		It("rejects operations while signed out", func() {
			identity.SignOut()

			_, err := manager.Create(ctx, validDTO("Acme", "10"))
			Expect(err).To(MatchError(internal.ErrNotAuthenticated))
			_, err = manager.List(ctx, invoice.Filter{})
			Expect(err).To(MatchError(internal.ErrNotAuthenticated))
			Expect(manager.Stats().Count).To(BeZero())
		})

		It("ignores loading states and repeated sign-ins of the same user", func() {
			identity.Publish(auth.State{IsLoading: true})
			identity.SignIn(&auth.User{ID: "user-1"})
			Expect(storesMade).To(HaveLen(1))
		})

		It("reloads persisted invoices for the next sign-in", func() {
			_, err := manager.Create(ctx, validDTO("Acme", "10"))
			Expect(err).NotTo(HaveOccurred())

			identity.SignOut()
			identity.SignIn(&auth.User{ID: "user-1"})

			list, err := manager.List(ctx, invoice.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(HaveLen(1))
		})

		It("stays empty and refuses writes when loading fails", func() {
			store.loadFail = true
			identity.SignIn(&auth.User{ID: "user-2"})

			Expect(manager.LoadErr()).To(MatchError("disk unavailable"))
			list, err := manager.List(ctx, invoice.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(list).To(BeEmpty())

			_, err = manager.Create(ctx, validDTO("Acme", "10"))
			Expect(err).To(MatchError(internal.ErrPersistenceFailed))
			Expect(store.saves).To(BeZero())
			Expect(manager.Stats().Count).To(BeZero())
		})

		It("clears the load failure once a later sign-in loads", func() {
			store.loadFail = true
			identity.SignIn(&auth.User{ID: "user-2"})
			Expect(manager.LoadErr()).To(HaveOccurred())

			store.loadFail = false
			identity.SignIn(&auth.User{ID: "user-3"})
			Expect(manager.LoadErr()).NotTo(HaveOccurred())

			_, err := manager.Create(ctx, validDTO("Acme", "10"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("stops following auth changes after Dispose", func() {
			manager.Dispose()
			identity.SignIn(&auth.User{ID: "user-3"})
			Expect(storesMade).To(Equal([]string{"user-1"}))
		})
	})

	Describe("Create", func() {
		It("creates a pending invoice with equal timestamps", func() {
			inv, err := manager.Create(ctx, validDTO("Acme", "100"))
			Expect(err).NotTo(HaveOccurred())

			Expect(inv.ID).To(HavePrefix("inv_"))
			Expect(inv.UserID).To(Equal("user-1"))
			Expect(inv.Status).To(Equal(invoice.StatusPending))
			Expect(inv.Currency).To(Equal("USD"))
			Expect(inv.CreatedAt).To(Equal(inv.UpdatedAt))
			Expect(inv.HasAttachment()).To(BeFalse())
			Expect(store.Saved()).To(HaveLen(1))
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeInvoiceCreated}))
		})

		It("assigns unique ids", func() {
			seen := map[string]bool{}
			for i := 0; i < 20; i++ {
				inv, err := manager.Create(ctx, validDTO("Acme", "1"))
				Expect(err).NotTo(HaveOccurred())
				Expect(seen).NotTo(HaveKey(inv.ID))
				seen[inv.ID] = true
			}
		})

		It("canonicalizes the category name", func() {
			dto := validDTO("Acme", "1")
			dto.Category = "  professional services "
			inv, err := manager.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())
			Expect(inv.Category).To(Equal("Professional Services"))
		})

		It("validates before any side effect", func() {
			dto := invoice.CreateInvoiceDTO{Amount: amount("-5"), Category: "Nope", InvoiceDate: "yesterday", File: pdf()}
			_, err := manager.Create(ctx, dto)

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			details := appErr.Details.(internal.ValidationErrors)
			fields := []string{}
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			Expect(fields).To(ConsistOf("amount", "vendor_name", "category", "invoice_date"))
			Expect(uploads.paths).To(BeEmpty())
			Expect(store.saves).To(BeZero())
		})

		It("requires an amount", func() {
			dto := validDTO("Acme", "1")
			dto.Amount = nil
			_, err := manager.Create(ctx, dto)
			Expect(err).To(MatchError(internal.ErrValidationFailed))
		})

		It("uploads and extracts an attached file", func() {
			dto := validDTO("Acme", "10")
			dto.File = pdf()
			inv, err := manager.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())

			Expect(uploads.paths).To(HaveLen(1))
			Expect(uploads.paths[0]).To(MatchRegexp(`^invoices/user-1/\d+-march_invoice\.pdf$`))
			Expect(uploads.opts[0].Upsert).To(BeTrue())
			Expect(inv.FileURL).To(HavePrefix("https://files.example.com/invoices/user-1/"))
			Expect(inv.FileName).To(Equal("march invoice.pdf"))
			Expect(inv.FileSize).To(Equal(int64(4)))
			Expect(inv.ExtractedText).To(ContainSubstring("Acme Corp"))
		})

		It("propagates upload failures without storing anything", func() {
			uploads.shouldFail = true
			dto := validDTO("Acme", "10")
			dto.File = pdf()

			_, err := manager.Create(ctx, dto)
			Expect(err).To(MatchError(internal.ErrUploadFailed))
			Expect(err).To(MatchError(ContainSubstring("storage offline")))
			Expect(store.saves).To(BeZero())
			Expect(manager.Stats().Count).To(BeZero())
		})

		It("leaves memory untouched when persistence fails", func() {
			_, err := manager.Create(ctx, validDTO("Acme", "10"))
			Expect(err).NotTo(HaveOccurred())

			store.shouldFail = true
			_, err = manager.Create(ctx, validDTO("Globex", "20"))
			Expect(err).To(MatchError(internal.ErrPersistenceFailed))
			Expect(err).To(MatchError(ContainSubstring("disk full")))

			Expect(manager.Stats().Count).To(Equal(1))
			Expect(manager.Stats().Total.Equal(decimal.NewFromInt(10))).To(BeTrue())
		})
	})

	Describe("Update", func() {
		var created *invoice.Invoice

		BeforeEach(func() {
			var err error
			created, err = manager.Create(ctx, validDTO("Acme", "100"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("merges only the given fields", func() {
			desc := "March licenses"
			updated, err := manager.Update(ctx, created.ID, invoice.UpdateInvoiceDTO{Description: &desc})
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Description).To(Equal(desc))
			Expect(updated.VendorName).To(Equal("Acme"))
			Expect(updated.Amount.Equal(created.Amount)).To(BeTrue())
			Expect(updated.CreatedAt).To(Equal(created.CreatedAt))
		})

		It("sets the payment date and a strictly newer updatedAt when paid", func() {
			frozen = true
			updated, err := manager.Update(ctx, created.ID, invoice.StatusUpdate(invoice.StatusPaid))
			Expect(err).NotTo(HaveOccurred())

			Expect(updated.Status).To(Equal(invoice.StatusPaid))
			Expect(updated.PaymentDate).NotTo(BeNil())
			Expect(updated.UpdatedAt.After(created.UpdatedAt)).To(BeTrue())
			Expect(publisher.Types()).To(ContainElement(events.EventTypeInvoiceStatusChanged))
		})

		DescribeTable("status transitions",
			func(path []invoice.Status, allowed bool) {
				var err error
				for _, s := range path {
					_, err = manager.Update(ctx, created.ID, invoice.StatusUpdate(s))
					if err != nil {
						break
					}
				}
				if allowed {
					Expect(err).NotTo(HaveOccurred())
				} else {
					Expect(err).To(MatchError(internal.ErrInvalidStatusTransition))
				}
			},
			Entry("pending to approved", []invoice.Status{invoice.StatusApproved}, true),
			Entry("approved to paid", []invoice.Status{invoice.StatusApproved, invoice.StatusPaid}, true),
			Entry("pending to overdue to paid", []invoice.Status{invoice.StatusOverdue, invoice.StatusPaid}, true),
			Entry("paid to rejected", []invoice.Status{invoice.StatusPaid, invoice.StatusRejected}, true),
			Entry("same status", []invoice.Status{invoice.StatusPending}, true),
			Entry("rejected to approved", []invoice.Status{invoice.StatusRejected, invoice.StatusApproved}, false),
			Entry("paid to approved", []invoice.Status{invoice.StatusPaid, invoice.StatusApproved}, false),
			Entry("paid to overdue", []invoice.Status{invoice.StatusPaid, invoice.StatusOverdue}, false),
			Entry("approved back to pending", []invoice.Status{invoice.StatusApproved, invoice.StatusPending}, false),
		)

		It("rejects unknown statuses", func() {
			_, err := manager.Update(ctx, created.ID, invoice.StatusUpdate("archived"))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.GetDetailedMessage()).To(ContainSubstring("unknown status"))
		})

		It("re-validates the merged invoice", func() {
			cat := "Groceries"
			_, err := manager.Update(ctx, created.ID, invoice.UpdateInvoiceDTO{Category: &cat, Amount: amount("-1")})
			Expect(err).To(MatchError(internal.ErrValidationFailed))

			got, err := manager.Get(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Category).To(Equal("Software"))
		})

		It("fails with not found for unknown ids", func() {
			_, err := manager.Update(ctx, "inv_missing", invoice.UpdateInvoiceDTO{})
			Expect(err).To(MatchError(internal.ErrInvoiceNotFound))
		})

		It("keeps the previous version when persistence fails", func() {
			store.shouldFail = true
			_, err := manager.Update(ctx, created.ID, invoice.StatusUpdate(invoice.StatusPaid))
			Expect(err).To(MatchError(internal.ErrPersistenceFailed))

			got, _ := manager.Get(ctx, created.ID)
			Expect(got.Status).To(Equal(invoice.StatusPending))
			Expect(got.PaymentDate).To(BeNil())
		})

		It("does not leak internal state through returned values", func() {
			got, _ := manager.Get(ctx, created.ID)
			got.VendorName = "mutated"

			again, _ := manager.Get(ctx, created.ID)
			Expect(again.VendorName).To(Equal("Acme"))
		})
	})

	Describe("Delete", func() {
		It("removes the invoice and persists", func() {
			inv, _ := manager.Create(ctx, validDTO("Acme", "1"))
			Expect(manager.Delete(ctx, inv.ID)).To(Succeed())
			Expect(store.Saved()).To(BeEmpty())
		})

		It("fails on a second delete or a later update", func() {
			inv, _ := manager.Create(ctx, validDTO("Acme", "1"))
			Expect(manager.Delete(ctx, inv.ID)).To(Succeed())

			Expect(manager.Delete(ctx, inv.ID)).To(MatchError(internal.ErrInvoiceNotFound))
			_, err := manager.Update(ctx, inv.ID, invoice.UpdateInvoiceDTO{})
			Expect(err).To(MatchError(internal.ErrInvoiceNotFound))
		})
	})

	Describe("UploadFile", func() {
		It("returns the url and extracted text", func() {
			result, err := manager.UploadFile(ctx, *pdf())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FileURL).NotTo(BeEmpty())
			Expect(result.ExtractedText).To(HavePrefix("Acme Corp"))
			Expect(publisher.Types()).To(Equal([]string{events.EventTypeInvoiceFileUploaded}))
		})

		It("swallows extraction failures", func() {
			extractor.shouldFail = true
			result, err := manager.UploadFile(ctx, *pdf())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.FileURL).NotTo(BeEmpty())
			Expect(result.ExtractedText).To(BeEmpty())
		})

		It("propagates upload failures", func() {
			uploads.shouldFail = true
			_, err := manager.UploadFile(ctx, *pdf())
			Expect(err).To(MatchError(internal.ErrUploadFailed))
			Expect(extractor.calls).To(BeZero())
		})

		It("rejects unsupported files", func() {
			_, err := manager.UploadFile(ctx, attachment.File{Name: "notes.txt", ContentType: "text/plain", Size: 3})
			Expect(err).To(MatchError(internal.ErrValidationFailed))
			Expect(uploads.paths).To(BeEmpty())
		})
	})

	Describe("queries", func() {
		BeforeEach(func() {
			a := validDTO("Acme Corp", "100")
			a.InvoiceNumber = "INV-001"
			b := validDTO("Globex", "200")
			b.Category = "Travel"
			b.Description = "flights to acme HQ"
			c := validDTO("Initech", "50")

			for _, dto := range []invoice.CreateInvoiceDTO{a, b, c} {
				_, err := manager.Create(ctx, dto)
				Expect(err).NotTo(HaveOccurred())
			}
		})

		vendors := func(list []*invoice.Invoice) []string {
			names := make([]string, len(list))
			for i, inv := range list {
				names[i] = inv.VendorName
			}
			return names
		}

		It("searches vendor, number and description case-insensitively", func() {
			list, err := manager.List(ctx, invoice.Filter{Search: "ACME"})
			Expect(err).NotTo(HaveOccurred())
			Expect(vendors(list)).To(Equal([]string{"Acme Corp", "Globex"}))

			list, _ = manager.List(ctx, invoice.Filter{Search: "inv-001"})
			Expect(vendors(list)).To(Equal([]string{"Acme Corp"}))
		})

		It("filters by status and category", func() {
			list, _ := manager.List(ctx, invoice.Filter{Category: "travel"})
			Expect(vendors(list)).To(Equal([]string{"Globex"}))

			list, _ = manager.List(ctx, invoice.Filter{Status: invoice.StatusPaid})
			Expect(list).To(BeEmpty())
		})

		It("returns recent invoices newest first", func() {
			list, err := manager.Recent(ctx, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(vendors(list)).To(Equal([]string{"Initech", "Globex"}))
		})

		It("reflects the latest mutation in stats", func() {
			list, _ := manager.List(ctx, invoice.Filter{Search: "globex"})
			_, err := manager.Update(ctx, list[0].ID, invoice.StatusUpdate(invoice.StatusPaid))
			Expect(err).NotTo(HaveOccurred())

			stats := manager.Stats()
			Expect(stats.Count).To(Equal(3))
			Expect(stats.Paid.String()).To(Equal("200"))
			Expect(stats.Pending.String()).To(Equal("150"))
			Expect(stats.Total.String()).To(Equal("350"))
		})
	})

	It("persists exactly what it holds in memory", func() {
		_, err := manager.Create(ctx, validDTO("Acme", "12.50"))
		Expect(err).NotTo(HaveOccurred())

		saved, err := json.Marshal(store.Saved())
		Expect(err).NotTo(HaveOccurred())
		Expect(string(saved)).To(ContainSubstring(`"amount":12.5`))
		Expect(string(saved)).To(ContainSubstring(`"vendorName":"Acme"`))
		Expect(strings.Count(string(saved), `"id":`)).To(Equal(1))
	})
})
