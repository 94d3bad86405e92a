package models

import "strings"

type Category string

const (
	CategoryResidential Category = "residential"
	CategoryCommercial  Category = "commercial"
	CategoryIndustrial  Category = "industrial"
	CategoryRural       Category = "rural"
	CategoryMixedUse    Category = "mixed-use"
	CategoryPremium     Category = "premium"
)

// Categories lists the closed set of listing categories.
func Categories() []Category {
	return []Category{
		CategoryResidential,
		CategoryCommercial,
		CategoryIndustrial,
		CategoryRural,
		CategoryMixedUse,
		CategoryPremium,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Price is an amount in a currency, e.g. 85000 USD.
type Price struct {
	Amount   float64 `json:"amount" yaml:"amount"`
	Currency string  `json:"currency" yaml:"currency"`
}

// Area is a surface magnitude with its unit, e.g. 500 m².
type Area struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  string  `json:"unit" yaml:"unit"`
}

// Listing represents one property for sale.
type Listing struct {
	ID          string   `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Price       Price    `json:"price" yaml:"price"`
	Area        Area     `json:"area" yaml:"area"`
	Location    string   `json:"location" yaml:"location"`
	Category    Category `json:"category" yaml:"category"`
	Features    []string `json:"features" yaml:"features"`
	Badge       string   `json:"badge,omitempty" yaml:"badge"`
	Description string   `json:"description,omitempty" yaml:"description"`
}

type ContactInfo struct {
	Company   string `json:"company" yaml:"company"`
	Phone     string `json:"phone" yaml:"phone"`
	Email     string `json:"email" yaml:"email"`
	Address   string `json:"address" yaml:"address"`
	Hours     string `json:"hours" yaml:"hours"`
	WhatsApp  string `json:"whatsapp,omitempty" yaml:"whatsapp"`
	Facebook  string `json:"facebook,omitempty" yaml:"facebook"`
	Instagram string `json:"instagram,omitempty" yaml:"instagram"`
}

// Service is one offered service. In knowledge base files it can be written
// either as a bare name or as a mapping with a description.
type Service struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
}

func (s *Service) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err == nil {
		s.Name = strings.TrimSpace(name)
		return nil
	}

	type plain Service
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*s = Service(p)
	return nil
}

// Rate is an approximate annual interest rate for one category of credit.
type Rate struct {
	Label   string  `json:"label" yaml:"label"`
	Percent float64 `json:"percent" yaml:"percent"`
}

type Financing struct {
	DownPaymentMin float64  `json:"down_payment_min" yaml:"down_payment_min"`
	TermsMonths    []int    `json:"terms_months" yaml:"terms_months"`
	Banks          []string `json:"banks" yaml:"banks"`
	Rates          []Rate   `json:"rates" yaml:"rates"`
}

// KnowledgeBase is the static catalogue used to populate responses. It is
// loaded once and must not be mutated afterwards.
type KnowledgeBase struct {
	Listings  []Listing   `json:"listings" yaml:"listings"`
	Contact   ContactInfo `json:"contact" yaml:"contact"`
	Services  []Service   `json:"services" yaml:"services"`
	Financing *Financing  `json:"financing,omitempty" yaml:"financing"`
}

func (kb *KnowledgeBase) ListingsByCategory(c Category) []Listing {
	var out []Listing
	for _, l := range kb.Listings {
		if l.Category == c {
			out = append(out, l)
		}
	}
	return out
}

func (kb *KnowledgeBase) ListingByID(id string) (Listing, bool) {
	for _, l := range kb.Listings {
		if l.ID == id {
			return l, true
		}
	}
	return Listing{}, false
}
