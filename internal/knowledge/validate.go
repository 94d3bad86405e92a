package knowledge

import (
	"fmt"
	"math"
	"strings"

	"github.com/xaenox/terrenos-bot/internal/models"
)

// Validate checks the shape of a knowledge base and returns every problem it
// finds, or nil.
func Validate(kb *models.KnowledgeBase) []string {
	var problems []string
	if kb == nil {
		return []string{"knowledge base is empty"}
	}

	seen := make(map[string]int, len(kb.Listings))
	for i, l := range kb.Listings {
		where := fmt.Sprintf("listings[%d]", i)
		if strings.TrimSpace(l.ID) == "" {
			problems = append(problems, where+": missing id")
		} else if prev, dup := seen[l.ID]; dup {
			problems = append(problems, fmt.Sprintf("%s: duplicate id %q (also listings[%d])", where, l.ID, prev))
		} else {
			seen[l.ID] = i
		}
		if strings.TrimSpace(l.Name) == "" {
			problems = append(problems, where+": missing name")
		}
		if !l.Category.Valid() {
			problems = append(problems, fmt.Sprintf("%s: unknown category %q", where, l.Category))
		}
		if !finite(l.Price.Amount) {
			problems = append(problems, where+": price is not a number")
		} else if l.Price.Amount < 0 {
			problems = append(problems, where+": negative price")
		}
		if strings.TrimSpace(l.Price.Currency) == "" {
			problems = append(problems, where+": missing price currency")
		}
		if !finite(l.Area.Value) {
			problems = append(problems, where+": area is not a number")
		} else if l.Area.Value < 0 {
			problems = append(problems, where+": negative area")
		}
		if strings.TrimSpace(l.Area.Unit) == "" {
			problems = append(problems, where+": missing area unit")
		}
		for j, f := range l.Features {
			if strings.TrimSpace(f) == "" {
				problems = append(problems, fmt.Sprintf("%s.features[%d]: empty feature", where, j))
			}
		}
	}

	if kb.Contact.Phone == "" && kb.Contact.Email == "" {
		problems = append(problems, "contact: phone or email is required")
	}

	for i, s := range kb.Services {
		if strings.TrimSpace(s.Name) == "" {
			problems = append(problems, fmt.Sprintf("services[%d]: missing name", i))
		}
	}

	if f := kb.Financing; f != nil {
		if !finite(f.DownPaymentMin) || f.DownPaymentMin < 0 || f.DownPaymentMin > 100 {
			problems = append(problems, "financing: down_payment_min must be between 0 and 100")
		}
		for i, t := range f.TermsMonths {
			if t <= 0 {
				problems = append(problems, fmt.Sprintf("financing.terms_months[%d]: must be positive", i))
			}
		}
		for i, r := range f.Rates {
			if !finite(r.Percent) || r.Percent < 0 {
				problems = append(problems, fmt.Sprintf("financing.rates[%d]: percent must be a non-negative number", i))
			}
		}
	}

	return problems
}

// finite rejects the .nan and .inf values YAML allows for floats.
func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
