// Package knowledge loads and validates the static catalogue the chat
// assistant answers from.
package knowledge

import (
	"context"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/xaenox/terrenos-bot/internal/models"
)

//go:embed editions/*.yaml
var editions embed.FS

// ListingSource supplies listings from a remote store.
type ListingSource interface {
	ListTerrains(ctx context.Context, enabledOnly bool) ([]models.Listing, error)
}

// Load reads a knowledge base file. Any failure, including a missing file,
// is returned as a *ConfigurationError.
func Load(path string) (*models.KnowledgeBase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Err: err}
	}
	return Parse(data, path)
}

// Parse decodes and validates a YAML knowledge base. Unknown fields are
// rejected.
func Parse(data []byte, source string) (*models.KnowledgeBase, error) {
	var kb models.KnowledgeBase
	if err := yaml.UnmarshalStrict(data, &kb); err != nil {
		return nil, &ConfigurationError{Source: source, Err: err}
	}
	if problems := Validate(&kb); len(problems) > 0 {
		return nil, &ConfigurationError{Source: source, Problems: problems}
	}
	return &kb, nil
}

// Edition returns one of the embedded knowledge base snapshots ("usd", "mxn").
func Edition(name string) (*models.KnowledgeBase, error) {
	file := "editions/" + strings.ToLower(strings.TrimSpace(name)) + ".yaml"
	data, err := editions.ReadFile(file)
	if err != nil {
		return nil, &ConfigurationError{
			Source: name,
			Err:    fmt.Errorf("unknown edition, available: %s", strings.Join(Editions(), ", ")),
		}
	}
	return Parse(data, "edition:"+name)
}

// Editions lists the embedded snapshot names.
func Editions() []string {
	entries, err := editions.ReadDir("editions")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve loads a knowledge base from either an embedded edition name or a
// file path.
func Resolve(ref string) (*models.KnowledgeBase, error) {
	for _, name := range Editions() {
		if strings.EqualFold(ref, name) {
			return Edition(name)
		}
	}
	return Load(ref)
}

// FromSource builds a knowledge base whose listings come from src and whose
// contact, services and financing come from base.
func FromSource(ctx context.Context, src ListingSource, base *models.KnowledgeBase) (*models.KnowledgeBase, error) {
	listings, err := src.ListTerrains(ctx, true)
	if err != nil {
		return nil, &ConfigurationError{Source: "terrains", Err: err}
	}

	kb := &models.KnowledgeBase{Listings: listings}
	if base != nil {
		kb.Contact = base.Contact
		kb.Services = append([]models.Service(nil), base.Services...)
		kb.Financing = base.Financing
	}
	if problems := Validate(kb); len(problems) > 0 {
		return nil, &ConfigurationError{Source: "terrains", Problems: problems}
	}
	return kb, nil
}
