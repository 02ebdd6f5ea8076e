package invoice

import (
	"sort"

	"github.com/shopspring/decimal"
)

type CategoryTotal struct {
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}

// Stats are dashboard aggregates. Amounts are summed as-is across currencies.
type Stats struct {
	Total        decimal.Decimal `json:"total"`
	Pending      decimal.Decimal `json:"pending"`
	Paid         decimal.Decimal `json:"paid"`
	Overdue      decimal.Decimal `json:"overdue"`
	Count        int             `json:"count"`
	PendingCount int             `json:"pending_count"`
	PaidCount    int             `json:"paid_count"`
	OverdueCount int             `json:"overdue_count"`
	ByCategory   []CategoryTotal `json:"by_category"`
}

// ComputeStats is a pure function of the given snapshot.
func ComputeStats(invoices []*Invoice) Stats {
	s := Stats{ByCategory: []CategoryTotal{}}
	byCategory := make(map[string]*CategoryTotal)

	for _, inv := range invoices {
		s.Total = s.Total.Add(inv.Amount)
		s.Count++

		switch inv.Status {
		case StatusPending:
			s.Pending = s.Pending.Add(inv.Amount)
			s.PendingCount++
		case StatusPaid:
			s.Paid = s.Paid.Add(inv.Amount)
			s.PaidCount++
		case StatusOverdue:
			s.Overdue = s.Overdue.Add(inv.Amount)
			s.OverdueCount++
		}

		ct, ok := byCategory[inv.Category]
		if !ok {
			ct = &CategoryTotal{Category: inv.Category}
			byCategory[inv.Category] = ct
		}
		ct.Amount = ct.Amount.Add(inv.Amount)
		ct.Count++
	}

	for _, ct := range byCategory {
		s.ByCategory = append(s.ByCategory, *ct)
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if c := s.ByCategory[i].Amount.Cmp(s.ByCategory[j].Amount); c != 0 {
			return c > 0
		}
		return s.ByCategory[i].Category < s.ByCategory[j].Category
	})

	return s
}
