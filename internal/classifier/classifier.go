package classifier

import (
	"strings"
	"unicode/utf8"

	"github.com/xaenox/terrenos-bot/internal/models"
)

// Rule maps a topic to the keywords that trigger it. A keyword matches when
// it is a substring of the normalized input.
type Rule struct {
	Topic    models.Topic
	Keywords []string
}

// CategoryRule selects a listing category inside a property inquiry.
type CategoryRule struct {
	Category models.Category
	Keywords []string
}

// Match is the outcome of classifying one line of input.
type Match struct {
	Topic    models.Topic
	Category models.Category
	Keyword  string
}

// DefaultRules returns the topic rules in priority order. Accented and
// unaccented spellings are listed separately on purpose; input is only
// lowercased, never accent-folded.
func DefaultRules() []Rule {
	return []Rule{
		{Topic: models.TopicProperty, Keywords: []string{
			"propiedad", "terreno", "disponible", "lote",
			"residencial", "comercial", "industrial", "campestre", "uso mixto",
		}},
		{Topic: models.TopicPricing, Keywords: []string{
			"precio", "costo", "cuanto", "cuánto", "vale", "valor",
		}},
		{Topic: models.TopicLocation, Keywords: []string{
			"ubicación", "ubicacion", "donde", "dónde", "dirección", "direccion",
		}},
		{Topic: models.TopicVisit, Keywords: []string{
			"visita", "visitar", "agendar", "cita",
		}},
		{Topic: models.TopicFinancing, Keywords: []string{
			"financiamiento", "crédito", "credito", "pago", "enganche", "mensualidad", "hipoteca",
		}},
		{Topic: models.TopicContact, Keywords: []string{
			"contacto", "teléfono", "telefono", "email", "correo", "whatsapp",
		}},
		{Topic: models.TopicServices, Keywords: []string{
			"servicio", "asesoría", "asesoria", "ayuda",
		}},
		{Topic: models.TopicGreeting, Keywords: []string{
			"hola", "buenos", "buenas", "saludos",
		}},
		{Topic: models.TopicThanks, Keywords: []string{
			"gracias", "thank", "agradezco",
		}},
	}
}

// DefaultCategoryRules returns the category dispatch used for property
// inquiries, in priority order.
func DefaultCategoryRules() []CategoryRule {
	return []CategoryRule{
		{Category: models.CategoryResidential, Keywords: []string{"residencial", "casa", "hogar", "vivienda"}},
		{Category: models.CategoryCommercial, Keywords: []string{"comercial", "negocio", "tienda", "oficina"}},
		{Category: models.CategoryIndustrial, Keywords: []string{"industrial", "fábrica", "fabrica", "bodega", "almacén", "almacen"}},
		{Category: models.CategoryRural, Keywords: []string{"campestre", "rural", "campo", "rancho"}},
		{Category: models.CategoryMixedUse, Keywords: []string{"uso mixto", "mixto"}},
		{Category: models.CategoryPremium, Keywords: []string{"lujo", "exclusivo", "exclusiva"}},
	}
}

// Normalize lowercases text and collapses runs of whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

type KeywordClassifier struct {
	rules      []Rule
	categories []CategoryRule
}

func NewKeywordClassifier(rules []Rule, categories []CategoryRule) *KeywordClassifier {
	if rules == nil {
		rules = DefaultRules()
	}
	if categories == nil {
		categories = DefaultCategoryRules()
	}
	return &KeywordClassifier{
		rules:      rules,
		categories: categories,
	}
}

// Classify returns the first rule, in priority order, with a keyword found in
// text. Nothing matching yields TopicFallback.
func (c *KeywordClassifier) Classify(text string) Match {
	// Malformed input is never matched against keywords.
	if !utf8.ValidString(text) {
		return Match{Topic: models.TopicFallback}
	}
	content := Normalize(text)
	if content == "" {
		return Match{Topic: models.TopicFallback}
	}

	for _, rule := range c.rules {
		keyword, ok := firstKeyword(content, rule.Keywords)
		if !ok {
			continue
		}
		m := Match{Topic: rule.Topic, Keyword: keyword}
		if rule.Topic == models.TopicProperty {
			m.Category = c.category(content)
		}
		return m
	}

	return Match{Topic: models.TopicFallback}
}

func (c *KeywordClassifier) category(content string) models.Category {
	for _, rule := range c.categories {
		if _, ok := firstKeyword(content, rule.Keywords); ok {
			return rule.Category
		}
	}
	return ""
}

func firstKeyword(content string, keywords []string) (string, bool) {
	for _, keyword := range keywords {
		if keyword != "" && strings.Contains(content, keyword) {
			return keyword, true
		}
	}
	return "", false
}
