package storage_test

import (
	"context"
	"path/filepath"

	"github.com/frahmantamala/invoice-management/internal"
	"github.com/frahmantamala/invoice-management/internal/invoice/storage"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	invoiceDatamodel "github.com/frahmantamala/invoice-management/internal/core/datamodel/invoice"
)

func blobStoreBehaviour(open func() storage.BlobStore) {
	var (
		store storage.BlobStore
		ctx   context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = open()
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	It("returns ErrBlobNotFound for a missing key", func() {
		_, err := store.Get(ctx, "invoices/nobody")
		Expect(err).To(MatchError(storage.ErrBlobNotFound))
	})

	It("stores and overwrites blobs", func() {
		Expect(store.Put(ctx, "invoices/u1", []byte(`[1]`))).To(Succeed())
		Expect(store.Put(ctx, "invoices/u1", []byte(`[2]`))).To(Succeed())

		data, err := store.Get(ctx, "invoices/u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`[2]`))
	})

	It("keeps keys independent", func() {
		Expect(store.Put(ctx, "invoices/u1", []byte(`"a"`))).To(Succeed())
		Expect(store.Put(ctx, "invoices/u2", []byte(`"b"`))).To(Succeed())

		data, err := store.Get(ctx, "invoices/u1")
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`"a"`))
	})

	It("answers pings", func() {
		Expect(store.Ping(ctx)).To(Succeed())
	})
}

var _ = Describe("BoltStore", func() {
	blobStoreBehaviour(func() storage.BlobStore {
		s, err := storage.NewBoltStore(filepath.Join(GinkgoT().TempDir(), "data", "test.db"), "invoices", 0)
		Expect(err).NotTo(HaveOccurred())
		return s
	})

	It("refuses cancelled contexts", func() {
		s, err := storage.NewBoltStore(filepath.Join(GinkgoT().TempDir(), "test.db"), "invoices", 0)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		Expect(s.Put(ctx, "k", []byte("v"))).To(MatchError(context.Canceled))
	})
})

var _ = Describe("GormStore", func() {
	blobStoreBehaviour(func() storage.BlobStore {
		db, err := gorm.Open(sqlite.Open(filepath.Join(GinkgoT().TempDir(), "blobs.sqlite")), &gorm.Config{
			Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(db.AutoMigrate(&invoiceDatamodel.Blob{})).To(Succeed())
		return storage.NewGormStore(db)
	})
})

var _ = Describe("Open", func() {
	It("opens a bolt backend", func() {
		cfg := internal.StorageConfig{
			Driver: internal.StorageDriverBolt,
			Path:   filepath.Join(GinkgoT().TempDir(), "open.db"),
			Bucket: "invoices",
		}
		s, err := storage.Open(cfg, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		Expect(s).To(BeAssignableToTypeOf(&storage.BoltStore{}))
		Expect(s.Close()).To(Succeed())
	})

	It("opens a sqlite backend and creates the table", func() {
		cfg := internal.StorageConfig{
			Driver: internal.StorageDriverSQLite,
			Path:   filepath.Join(GinkgoT().TempDir(), "open.sqlite"),
		}
		s, err := storage.Open(cfg, logger.Discard())
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		Expect(s.Put(context.Background(), "k", []byte("v"))).To(Succeed())
	})

	It("rejects unknown drivers", func() {
		_, err := storage.Open(internal.StorageConfig{Driver: "redis"}, logger.Discard())
		Expect(err).To(HaveOccurred())
	})
})
