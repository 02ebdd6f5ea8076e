package cmd

import (
	"context"
	"fmt"

	"github.com/frahmantamala/invoice-management/internal/auth"
	"github.com/frahmantamala/invoice-management/internal/invoice"
	"github.com/frahmantamala/invoice-management/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var seedUser string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed a user's collection with sample invoices",
	Long:  `Seed the configured storage with sample invoices for development and testing purposes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		log := logger.LoggerWrapper()

		app, err := newApp(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer app.Close(context.Background())

		manager, err := app.Sessions.Manager(ctx, &auth.User{ID: seedUser})
		if err != nil {
			return err
		}

		if clearData {
			existing, err := manager.List(ctx, invoice.Filter{})
			if err != nil {
				return err
			}
			for _, inv := range existing {
				if err := manager.Delete(ctx, inv.ID); err != nil {
					return fmt.Errorf("failed to clear invoice %s: %w", inv.ID, err)
				}
			}
			fmt.Printf("Cleared %d invoices for %s\n", len(existing), seedUser)
		}

		for _, sample := range sampleInvoices() {
			inv, err := manager.Create(ctx, sample.dto)
			if err != nil {
				return fmt.Errorf("failed to seed invoice from %s: %w", sample.dto.VendorName, err)
			}
			for _, status := range sample.transitions {
				updated, err := manager.Update(ctx, inv.ID, invoice.StatusUpdate(status))
				if err != nil {
					return fmt.Errorf("failed to move invoice %s to %s: %w", inv.ID, status, err)
				}
				inv = updated
			}
			fmt.Printf("Seeded invoice %s: %s %s %s (%s)\n", inv.ID, inv.VendorName, inv.Amount.StringFixed(2), inv.Currency, inv.Status)
		}

		stats := manager.Stats()
		fmt.Printf("User %s now has %d invoices totalling %s\n", seedUser, stats.Count, stats.Total.StringFixed(2))
		return nil
	},
}

type sampleInvoice struct {
	dto         invoice.CreateInvoiceDTO
	transitions []invoice.Status
}

func sampleInvoices() []sampleInvoice {
	amount := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	return []sampleInvoice{
		{dto: invoice.CreateInvoiceDTO{
			VendorName: "Acme Office Supply", InvoiceNumber: "AOS-1042", Amount: amount("249.90"),
			Category: "Office Supplies", InvoiceDate: "2024-01-05", DueDate: "2024-02-04",
			Description: "Printer paper and toner",
		}, transitions: []invoice.Status{invoice.StatusApproved, invoice.StatusPaid}},
		{dto: invoice.CreateInvoiceDTO{
			VendorName: "Cloudline Hosting", InvoiceNumber: "CL-2024-0117", Amount: amount("1200.00"),
			Category: "Software", InvoiceDate: "2024-01-17", DueDate: "2024-02-16",
		}, transitions: []invoice.Status{invoice.StatusApproved}},
		{dto: invoice.CreateInvoiceDTO{
			VendorName: "Metro Power & Light", InvoiceNumber: "MPL-88812", Amount: amount("318.45"),
			Category: "Utilities", InvoiceDate: "2023-12-01", DueDate: "2023-12-31",
		}, transitions: []invoice.Status{invoice.StatusOverdue}},
		{dto: invoice.CreateInvoiceDTO{
			VendorName: "Harbor Legal LLP", InvoiceNumber: "HL-551", Amount: amount("4500.00"),
			Category: "Professional Services", InvoiceDate: "2024-02-01", DueDate: "2024-03-02",
			Description: "Contract review",
		}},
		{dto: invoice.CreateInvoiceDTO{
			VendorName: "Skyway Travel", Amount: amount("980.00"), Currency: "EUR",
			Category: "Travel", InvoiceDate: "2024-02-10",
		}, transitions: []invoice.Status{invoice.StatusRejected}},
	}
}

func init() {
	seedCmd.Flags().StringVar(&seedUser, "user", "demo-user", "user id whose collection is seeded")
}
