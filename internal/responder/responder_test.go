package responder

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/xaenox/terrenos-bot/internal/classifier"
	"github.com/xaenox/terrenos-bot/internal/knowledge"
	"github.com/xaenox/terrenos-bot/internal/models"
)

func edition(t *testing.T, name string) *models.KnowledgeBase {
	t.Helper()
	kb, err := knowledge.Edition(name)
	if err != nil {
		t.Fatalf("Edition(%q) error = %v", name, err)
	}
	return kb
}

func newResponder(t *testing.T, kb *models.KnowledgeBase, opts ...Option) *Responder {
	t.Helper()
	r, err := New(kb, append([]Option{WithSeed(1)}, opts...)...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func loteNorte() *models.KnowledgeBase {
	return &models.KnowledgeBase{
		Listings: []models.Listing{{
			ID:       "lote-norte",
			Name:     "Lote Norte",
			Price:    models.Price{Amount: 10000, Currency: "USD"},
			Area:     models.Area{Value: 300, Unit: "m²"},
			Location: "Zona Norte",
			Category: models.CategoryResidential,
			Features: []string{"Agua", "Luz"},
		}},
		Contact: models.ContactInfo{Phone: "555-0100", Email: "hola@example.com"},
	}
}

func inPool(r *Responder, text string) bool {
	for _, p := range r.FallbackPool() {
		if p == text {
			return true
		}
	}
	return false
}

func TestRespond_Topics(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	tests := []struct {
		input    string
		topic    models.Topic
		contains []string
	}{
		{"¿Qué terrenos tienen?", models.TopicProperty, []string{"Tenemos 4 excelentes propiedades", "Terreno Comercial Centro"}},
		{"¿Cuánto cuestan?", models.TopicPricing, []string{"$65,000 USD", "$150,000 USD", "escrituración"}},
		{"¿dónde están?", models.TopicLocation, []string{"Zona Industrial", "Av. Principal 123"}},
		{"quiero agendar una cita", models.TopicVisit, []string{"+1 234 567 8900", "https://wa.me/1234567890"}},
		{"opciones de financiamiento", models.TopicFinancing, []string{"12, 24 o 36 meses", "Enganche desde 20%", "Banco Nacional"}},
		{"correo de contacto", models.TopicContact, []string{"info@terrenospremium.com", "@terrenospremium"}},
		{"¿qué servicios ofrecen?", models.TopicServices, []string{"**Topografía**", "Gestión de Permisos"}},
		{"Hola", models.TopicGreeting, []string{"Es un placer ayudarte"}},
		{"gracias", models.TopicThanks, []string{"¡De nada!"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := r.Respond(tt.input)
			if got.Topic != tt.topic {
				t.Fatalf("Topic = %s, want %s", got.Topic, tt.topic)
			}
			for _, s := range tt.contains {
				if !strings.Contains(got.Text, s) {
					t.Errorf("reply does not contain %q:\n%s", s, got.Text)
				}
			}
		})
	}
}

func TestRespond_PriorityOrder(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	got := r.Respond("¿Cuál es el precio? También quiero una visita")
	if got.Topic != models.TopicPricing {
		t.Fatalf("Topic = %s, want pricing", got.Topic)
	}
	if got.Text != r.Reply(models.TopicPricing, "").Text {
		t.Error("price and visit input should return the price reply")
	}
}

func TestRespond_EmptyInputFallsBack(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	for _, in := range []string{"", " ", "\t", "\xff\xfe", strings.Repeat("x", 1<<20)} {
		got := r.Respond(in)
		if got.Topic != models.TopicFallback {
			t.Errorf("Respond(%.10q) topic = %s, want fallback", in, got.Topic)
		}
		if !inPool(r, got.Text) {
			t.Errorf("Respond(%.10q) returned text outside the fallback pool: %q", in, got.Text)
		}
	}
}

func TestRespond_Deterministic(t *testing.T) {
	kb := edition(t, "mxn")
	a := newResponder(t, kb, WithSeed(1))
	b := newResponder(t, kb, WithSeed(99))

	inputs := []string{
		"terrenos",
		"terreno residencial",
		"precios",
		"ubicación",
		"visita",
		"financiamiento",
		"contacto",
		"servicios",
		"hola",
		"gracias",
	}
	for _, in := range inputs {
		first := a.Classify(in)
		if second := a.Classify(in); first != second {
			t.Errorf("Classify(%q) changed between calls", in)
		}
		if other := b.Classify(in); first != other {
			t.Errorf("Classify(%q) depends on the random source", in)
		}
	}
}

func TestRespond_FallbackCoverage(t *testing.T) {
	r := newResponder(t, edition(t, "usd"), WithSeed(42))

	seen := make(map[string]int)
	for i := 0; i < 2000; i++ {
		text := r.Classify("zzz")
		if !inPool(r, text) {
			t.Fatalf("fallback %q is not in the pool", text)
		}
		seen[text]++
	}
	if len(seen) != len(r.FallbackPool()) {
		t.Errorf("saw %d distinct fallbacks, want %d", len(seen), len(r.FallbackPool()))
	}
}

func TestRespond_FallbackSeeded(t *testing.T) {
	kb := edition(t, "usd")
	a := newResponder(t, kb, WithRand(rand.New(rand.NewPCG(7, 7))))
	b := newResponder(t, kb, WithRand(rand.New(rand.NewPCG(7, 7))))

	for i := 0; i < 20; i++ {
		if a.Classify("???") != b.Classify("???") {
			t.Fatal("same seed should produce the same fallback sequence")
		}
	}
}

func TestRespond_CategoryDispatch(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	got := r.Respond("quiero ver propiedades residenciales")
	if got.Topic != models.TopicProperty || got.Category != models.CategoryResidential {
		t.Fatalf("got %s/%s, want property/residential", got.Topic, got.Category)
	}
	if len(got.ListingIDs) != 1 || got.ListingIDs[0] != "terreno1" {
		t.Errorf("ListingIDs = %v", got.ListingIDs)
	}
	for _, s := range []string{"Terreno Residencial Las Flores", "$85,000 USD", "500 m²", "Zona Norte, Ciudad", "• Agua potable", "Mensualidad estimada"} {
		if !strings.Contains(got.Text, s) {
			t.Errorf("reply does not contain %q:\n%s", s, got.Text)
		}
	}
}

func TestRespond_EmptyCategory(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	got := r.Respond("terreno de uso mixto")
	if got.Category != models.CategoryMixedUse {
		t.Fatalf("Category = %q, want mixed-use", got.Category)
	}
	if !strings.Contains(got.Text, "no tenemos terrenos de uso mixto") {
		t.Errorf("reply should say nothing matches:\n%s", got.Text)
	}
	if !strings.Contains(got.Text, "Tenemos 4 excelentes propiedades") {
		t.Errorf("reply should include the catalogue:\n%s", got.Text)
	}
}

func TestRespond_SingleListing(t *testing.T) {
	r := newResponder(t, loteNorte())

	for _, in := range []string{"terrenos disponibles", "precios"} {
		got := r.Classify(in)
		for _, s := range []string{"Lote Norte", "$10,000 USD", "300 m²"} {
			if !strings.Contains(got, s) {
				t.Errorf("Classify(%q) does not contain %q:\n%s", in, s, got)
			}
		}
	}
}

func TestRespond_ZeroListings(t *testing.T) {
	kb := loteNorte()
	kb.Listings = nil
	r := newResponder(t, kb)

	tests := []struct {
		input string
		want  string
	}{
		{"terrenos", "no tenemos terrenos disponibles"},
		{"terreno comercial", "no tenemos terrenos disponibles"},
		{"precios", "no hay precios que mostrar"},
		{"ubicación", "No hay terrenos disponibles"},
	}
	for _, tt := range tests {
		got := r.Respond(tt.input)
		if !strings.Contains(got.Text, tt.want) {
			t.Errorf("Respond(%q) = %q, want it to contain %q", tt.input, got.Text, tt.want)
		}
		if len(got.ListingIDs) != 0 {
			t.Errorf("Respond(%q) ListingIDs = %v", tt.input, got.ListingIDs)
		}
	}
}

func TestRespond_PricesSortedAscending(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	got := r.Respond("precios")
	want := []string{"terreno4", "terreno1", "terreno3", "terreno2"}
	if strings.Join(got.ListingIDs, ",") != strings.Join(want, ",") {
		t.Errorf("ListingIDs = %v, want %v", got.ListingIDs, want)
	}
}

func TestRespond_MXNEdition(t *testing.T) {
	kb := edition(t, "mxn")
	r := newResponder(t, kb)

	got := r.Classify("terrenos")
	if strings.Contains(got, "USD") {
		t.Errorf("MXN catalogue mentions USD:\n%s", got)
	}
	for _, l := range kb.Listings {
		if !strings.Contains(got, l.Name) {
			t.Errorf("catalogue is missing %q", l.Name)
		}
		if l.Badge != "" && !strings.Contains(got, "["+l.Badge+"]") {
			t.Errorf("catalogue is missing badge %q", l.Badge)
		}
	}

	premium := r.Respond("terreno de lujo")
	if premium.Category != models.CategoryPremium || len(premium.ListingIDs) == 0 {
		t.Errorf("premium dispatch = %+v", premium)
	}
}

func TestRespond_CompanyNameIsNotACategory(t *testing.T) {
	for _, name := range []string{"usd", "mxn"} {
		t.Run(name, func(t *testing.T) {
			kb := edition(t, name)
			r := newResponder(t, kb)

			got := r.Respond("¿Qué terrenos tiene Terrenos Premium?")
			if got.Topic != models.TopicProperty || got.Category != "" {
				t.Fatalf("Respond() = topic %s category %q, want property catalogue", got.Topic, got.Category)
			}
			if len(got.ListingIDs) != len(kb.Listings) {
				t.Errorf("listing ids = %v, want all %d listings", got.ListingIDs, len(kb.Listings))
			}
			if strings.Contains(got.Text, "Por ahora no tenemos") {
				t.Errorf("unexpected empty-category preface:\n%s", got.Text)
			}
		})
	}
}

func TestWithRules(t *testing.T) {
	rules := []classifier.Rule{
		{Topic: models.TopicContact, Keywords: []string{"llamar"}},
		{Topic: models.TopicProperty, Keywords: []string{"parcela"}},
	}
	categories := []classifier.CategoryRule{
		{Category: models.CategoryRural, Keywords: []string{"milpa"}},
	}
	r := newResponder(t, edition(t, "usd"), WithRules(rules, categories))

	if got := r.Respond("quiero llamar"); got.Topic != models.TopicContact {
		t.Errorf("custom contact rule topic = %s", got.Topic)
	}
	got := r.Respond("una parcela con milpa")
	if got.Topic != models.TopicProperty || got.Category != models.CategoryRural {
		t.Errorf("custom property rule = topic %s category %q", got.Topic, got.Category)
	}
	if got := r.Respond("precio"); got.Topic != models.TopicFallback {
		t.Errorf("default rules should be replaced, got %s", got.Topic)
	}
}

func TestRespond_Concurrent(t *testing.T) {
	r := newResponder(t, edition(t, "usd"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if !inPool(r, r.Classify("???")) {
					t.Error("fallback outside pool")
					return
				}
				r.Classify("precios")
			}
		}()
	}
	wg.Wait()
}

func TestNew(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("New(nil) should fail")
	}
	if _, err := New(loteNorte(), WithFallbacks(nil)); err == nil {
		t.Error("New with an empty fallback pool should fail")
	}

	r, err := New(loteNorte(), WithFallbacks([]string{"¿Perdón?"}))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if got := r.Classify("..."); got != "¿Perdón?" {
		t.Errorf("Classify() = %q", got)
	}
	if len(defaultFallbacks) < 4 {
		t.Errorf("default pool has %d prompts, want at least 4", len(defaultFallbacks))
	}
}

func TestClassify_PackageLevel(t *testing.T) {
	if got := Classify("hola", nil); got != greetingText {
		t.Errorf("Classify() = %q", got)
	}
	if got := Classify("precios", loteNorte()); !strings.Contains(got, "$10,000 USD") {
		t.Errorf("Classify() = %q", got)
	}
}
