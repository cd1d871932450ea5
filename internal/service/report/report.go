package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agendalink/server/internal/model/contact"
)

// ContactSource supplies the contacts a report is built from.
type ContactSource interface {
	AllContacts(ctx context.Context) ([]contact.Contact, error)
}

// Report aggregates agenda activity for administrators.
type Report struct {
	Category     map[string]int     `json:"category"`
	Active       ActivitySummary    `json:"active"`
	Updates      []UpdateEntry      `json:"updates"`
	SpecialDates []SpecialDateEntry `json:"specialDates"`
	Interactions []InteractionEntry `json:"interactions"`
	Growth       []GrowthEntry      `json:"growth"`
	Failures     []FailureEntry     `json:"failures"`
}

// ActivitySummary splits contacts by recent interaction.
type ActivitySummary struct {
	Active   int `json:"active"`
	Inactive int `json:"inactive"`
}

type UpdateEntry struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type SpecialDateEntry struct {
	Name        string `json:"name"`
	SpecialDate string `json:"specialDate"`
}

type InteractionEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type GrowthEntry struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

type FailureEntry struct {
	Name  string `json:"name"`
	Issue string `json:"issue"`
}

const (
	maxListEntries   = 10
	maxGrowthEntries = 12
)

// Service builds reports from the contact store.
type Service struct {
	source ContactSource
	now    func() time.Time
}

// NewService wires the report builder.
func NewService(source ContactSource) *Service {
	return &Service{source: source, now: time.Now}
}

// Build computes every aggregation in one pass over the contacts.
func (s *Service) Build(ctx context.Context) (Report, error) {
	contacts, err := s.source.AllContacts(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load contacts: %w", err)
	}

	oneMonthAgo := s.now().UTC().AddDate(0, -1, 0)

	report := Report{
		Category: map[string]int{
			"Família":  0,
			"Trabalho": 0,
			"Amigos":   0,
			"Clientes": 0,
		},
	}

	growthByMonth := make(map[string]int)

	for _, c := range contacts {
		report.Category[c.Category]++

		if c.LastInteraction != nil && c.LastInteraction.After(oneMonthAgo) {
			report.Active.Active++
		} else {
			report.Active.Inactive++
		}

		if c.UpdatedAt.After(oneMonthAgo) && len(report.Updates) < maxListEntries {
			report.Updates = append(report.Updates, UpdateEntry{Name: c.Name, UpdatedAt: c.UpdatedAt})
		}

		if c.SpecialDate != "" && len(report.SpecialDates) < maxListEntries {
			report.SpecialDates = append(report.SpecialDates, SpecialDateEntry{Name: c.Name, SpecialDate: c.SpecialDate})
		}

		if c.Interactions > 0 && len(report.Interactions) < maxListEntries {
			report.Interactions = append(report.Interactions, InteractionEntry{Name: c.Name, Count: c.Interactions})
		}

		growthByMonth[c.CreatedAt.UTC().Format("2006-01")]++

		if issue, bad := contactIssue(c); bad && len(report.Failures) < maxListEntries {
			report.Failures = append(report.Failures, FailureEntry{Name: c.Name, Issue: issue})
		}
	}

	months := make([]string, 0, len(growthByMonth))
	for month := range growthByMonth {
		months = append(months, month)
	}
	sort.Strings(months)
	for _, month := range months {
		if len(report.Growth) >= maxGrowthEntries {
			break
		}
		report.Growth = append(report.Growth, GrowthEntry{Month: month, Count: growthByMonth[month]})
	}

	return report, nil
}

// contactIssue flags entries that cannot be reached: missing phone or email,
// or an email without an '@'.
func contactIssue(c contact.Contact) (string, bool) {
	switch {
	case c.Email == "":
		return "Email ausente", true
	case c.Phone == "":
		return "Telefone ausente", true
	case !strings.Contains(c.Email, "@"):
		return "Email inválido", true
	default:
		return "", false
	}
}
