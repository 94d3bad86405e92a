// Package responder turns one line of user input into a templated answer
// drawn from a knowledge base.
package responder

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/xaenox/terrenos-bot/internal/classifier"
	"github.com/xaenox/terrenos-bot/internal/models"
)

var defaultFallbacks = []string{
	"Interesante pregunta. ¿Podrías ser más específico? Puedo ayudarte con información sobre propiedades, precios, ubicaciones, financiamiento o servicios.",
	"No estoy seguro de entender completamente. ¿Te refieres a información sobre nuestros terrenos, precios o servicios?",
	"¡Buena pregunta! Para darte la mejor respuesta, ¿podrías especificar si buscas información sobre propiedades, precios, ubicaciones o servicios?",
	"Me gustaría ayudarte mejor. ¿Estás interesado en conocer sobre nuestras propiedades disponibles, precios, o tal vez agendar una visita?",
}

// Responder classifies input and renders replies. It is safe for concurrent
// use; the knowledge base is only read.
type Responder struct {
	kb         *models.KnowledgeBase
	classifier *classifier.KeywordClassifier
	fallbacks  []string

	rules      []classifier.Rule
	categories []classifier.CategoryRule

	mu  sync.Mutex
	rng *rand.Rand
}

type Option func(*Responder)

// WithSeed makes fallback selection reproducible.
func WithSeed(seed uint64) Option {
	return func(r *Responder) {
		r.rng = rand.New(rand.NewPCG(seed, seed))
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(r *Responder) {
		r.rng = rng
	}
}

func WithRules(rules []classifier.Rule, categories []classifier.CategoryRule) Option {
	return func(r *Responder) {
		r.rules = rules
		r.categories = categories
	}
}

func WithFallbacks(pool []string) Option {
	return func(r *Responder) {
		r.fallbacks = append([]string(nil), pool...)
	}
}

func New(kb *models.KnowledgeBase, opts ...Option) (*Responder, error) {
	if kb == nil {
		return nil, errors.New("responder: nil knowledge base")
	}

	r := &Responder{
		kb:        kb,
		fallbacks: defaultFallbacks,
	}
	for _, opt := range opts {
		opt(r)
	}

	if len(r.fallbacks) == 0 {
		return nil, errors.New("responder: empty fallback pool")
	}
	if r.rng == nil {
		now := uint64(time.Now().UnixNano())
		r.rng = rand.New(rand.NewPCG(now, now>>1))
	}
	r.classifier = classifier.NewKeywordClassifier(r.rules, r.categories)

	return r, nil
}

// Classify returns the reply text for one line of user input.
func (r *Responder) Classify(text string) string {
	return r.Respond(text).Text
}

// Respond classifies text and renders the matching reply. It never fails;
// input that matches no rule gets a fallback prompt.
func (r *Responder) Respond(text string) models.Reply {
	m := r.classifier.Classify(text)
	return r.Reply(m.Topic, m.Category)
}

// Reply renders a topic directly, skipping classification. Category is only
// consulted for TopicProperty.
func (r *Responder) Reply(topic models.Topic, category models.Category) models.Reply {
	kb := r.kb
	reply := models.Reply{Topic: topic}

	switch topic {
	case models.TopicProperty:
		if category == "" || !category.Valid() {
			reply.ListingIDs = listingIDs(kb.Listings)
			reply.Text = catalogueText(kb)
			break
		}
		listings := kb.ListingsByCategory(category)
		reply.Category = category
		if len(listings) == 0 {
			reply.ListingIDs = listingIDs(kb.Listings)
		} else {
			reply.ListingIDs = listingIDs(listings)
		}
		reply.Text = categoryText(kb, category, listings)
	case models.TopicPricing:
		sorted := byPrice(kb.Listings)
		reply.ListingIDs = listingIDs(sorted)
		reply.Text = pricingText(sorted)
	case models.TopicLocation:
		reply.ListingIDs = listingIDs(kb.Listings)
		reply.Text = locationText(kb)
	case models.TopicVisit:
		reply.Text = visitText(kb)
	case models.TopicFinancing:
		reply.Text = financingText(kb)
	case models.TopicContact:
		reply.Text = contactText(kb)
	case models.TopicServices:
		reply.Text = servicesText(kb)
	case models.TopicGreeting:
		reply.Text = greetingText
	case models.TopicThanks:
		reply.Text = thanksText
	default:
		reply.Topic = models.TopicFallback
		reply.Text = r.fallback()
	}

	return reply
}

// Welcome is the greeting shown when a session starts.
func (r *Responder) Welcome() string {
	return WelcomeText(r.kb)
}

// KnowledgeBase returns the knowledge base replies are rendered from.
func (r *Responder) KnowledgeBase() *models.KnowledgeBase {
	return r.kb
}

// FallbackPool returns a copy of the clarifying prompts used for unmatched
// input.
func (r *Responder) FallbackPool() []string {
	return append([]string(nil), r.fallbacks...)
}

func (r *Responder) fallback() string {
	r.mu.Lock()
	i := r.rng.IntN(len(r.fallbacks))
	r.mu.Unlock()
	return r.fallbacks[i]
}

// Classify answers input against kb with a freshly seeded responder. A nil
// knowledge base is treated as empty.
func Classify(input string, kb *models.KnowledgeBase) string {
	if kb == nil {
		kb = &models.KnowledgeBase{}
	}
	r, err := New(kb)
	if err != nil {
		return defaultFallbacks[0]
	}
	return r.Classify(input)
}
