package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/frahmantamala/invoice-management/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Logger", func() {
	DescribeTable("ParseLevel",
		func(in string, want slog.Level) {
			Expect(logger.ParseLevel(in)).To(Equal(want))
		},
		Entry("debug", "debug", slog.LevelDebug),
		Entry("upper case", "WARN", slog.LevelWarn),
		Entry("error", "error", slog.LevelError),
		Entry("unknown falls back to info", "verbose", slog.LevelInfo),
		Entry("empty", "", slog.LevelInfo),
	)

	It("writes JSON at the configured level", func() {
		var buf bytes.Buffer
		l := logger.New(&buf, "warn", "json")

		l.Info("dropped")
		l.Warn("kept", "invoice_id", "inv_1")

		var line map[string]interface{}
		Expect(json.Unmarshal(buf.Bytes(), &line)).To(Succeed())
		Expect(line).To(HaveKeyWithValue("msg", "kept"))
		Expect(line).To(HaveKeyWithValue("invoice_id", "inv_1"))
	})

	It("carries trace and user fields through the context", func() {
		ctx := logger.WithTrace(context.Background(), "trace-1")
		ctx = logger.WithUser(ctx, "user-1")

		Expect(logger.From(ctx)).NotTo(BeIdenticalTo(logger.LoggerWrapper()))
		Expect(logger.From(context.Background())).To(BeIdenticalTo(logger.LoggerWrapper()))
	})

	It("discards everything", func() {
		Expect(logger.Discard().Enabled(context.Background(), slog.LevelError)).To(BeFalse())
	})
})
