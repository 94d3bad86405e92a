package responder

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xaenox/terrenos-bot/internal/models"
)

var categoryGlyphs = map[models.Category]string{
	models.CategoryResidential: "🏠",
	models.CategoryCommercial:  "🏢",
	models.CategoryIndustrial:  "🏭",
	models.CategoryRural:       "🌳",
	models.CategoryMixedUse:    "🏙️",
	models.CategoryPremium:     "⭐",
}

var categoryLabels = map[models.Category]string{
	models.CategoryResidential: "residenciales",
	models.CategoryCommercial:  "comerciales",
	models.CategoryIndustrial:  "industriales",
	models.CategoryRural:       "campestres",
	models.CategoryMixedUse:    "de uso mixto",
	models.CategoryPremium:     "premium",
}

var currencySymbols = map[string]string{
	"USD": "$",
	"MXN": "$",
	"CAD": "$",
	"EUR": "€",
}

// formatNumber groups thousands with commas: 1200 -> "1,200", 10.5 -> "10.50".
func formatNumber(v float64) string {
	p := message.NewPrinter(language.English)
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return p.Sprintf("%d", int64(v))
	}
	return p.Sprintf("%.2f", v)
}

// FormatPrice renders a price as "$85,000 USD".
func FormatPrice(p models.Price) string {
	return currencySymbols[strings.ToUpper(p.Currency)] + formatNumber(p.Amount) + " " + p.Currency
}

// FormatArea renders an area as "1,200 m²".
func FormatArea(a models.Area) string {
	return formatNumber(a.Value) + " " + a.Unit
}

func glyph(c models.Category) string {
	if g, ok := categoryGlyphs[c]; ok {
		return g
	}
	return "📌"
}

func listingIDs(listings []models.Listing) []string {
	if len(listings) == 0 {
		return nil
	}
	ids := make([]string, len(listings))
	for i, l := range listings {
		ids[i] = l.ID
	}
	return ids
}

func catalogueText(kb *models.KnowledgeBase) string {
	if len(kb.Listings) == 0 {
		return "Por el momento no tenemos terrenos disponibles. " +
			"Déjanos tus datos y te avisaremos en cuanto tengamos nuevas opciones."
	}

	var b strings.Builder
	if len(kb.Listings) == 1 {
		b.WriteString("Tenemos 1 excelente propiedad disponible:\n\n")
	} else {
		fmt.Fprintf(&b, "Tenemos %d excelentes propiedades disponibles:\n\n", len(kb.Listings))
	}
	for _, l := range kb.Listings {
		fmt.Fprintf(&b, "%s **%s** - %s - %s", glyph(l.Category), l.Name, FormatArea(l.Area), FormatPrice(l.Price))
		if l.Badge != "" {
			fmt.Fprintf(&b, " [%s]", l.Badge)
		}
		b.WriteString("\n")
	}
	b.WriteString("\n¿Cuál te interesa más?")
	return b.String()
}

func categoryText(kb *models.KnowledgeBase, c models.Category, listings []models.Listing) string {
	if len(listings) == 0 {
		return fmt.Sprintf("Por ahora no tenemos terrenos %s disponibles.\n\n", categoryLabels[c]) + catalogueText(kb)
	}

	var b strings.Builder
	for i, l := range listings {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s **%s**", glyph(l.Category), l.Name)
		if l.Badge != "" {
			fmt.Fprintf(&b, " [%s]", l.Badge)
		}
		fmt.Fprintf(&b, "\n%s por %s. Ubicado en %s.", FormatArea(l.Area), FormatPrice(l.Price), l.Location)
		if l.Description != "" {
			b.WriteString("\n" + l.Description)
		}
		for _, f := range l.Features {
			b.WriteString("\n• " + f)
		}
		if est, ok := estimateMonthly(l.Price, downPayment(kb)); ok {
			fmt.Fprintf(&b, "\nMensualidad estimada: %s (%s%% de enganche, %s%% anual a %d años)",
				FormatPrice(est), formatNumber(downPayment(kb)), formatNumber(mortgageAnnualRate), mortgageYears)
		}
	}
	if len(listings) == 1 {
		b.WriteString("\n\n¿Te gustaría más detalles sobre esta propiedad?")
	} else {
		b.WriteString("\n\n¿Te gustaría más detalles sobre alguna de estas propiedades?")
	}
	return b.String()
}

// byPrice returns the listings sorted by ascending amount. Ties keep
// knowledge base order.
func byPrice(listings []models.Listing) []models.Listing {
	sorted := make([]models.Listing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Price.Amount < sorted[j].Price.Amount
	})
	return sorted
}

func pricingText(sorted []models.Listing) string {
	if len(sorted) == 0 {
		return "Por el momento no tenemos terrenos en venta, así que no hay precios que mostrar. " +
			"¿Te gustaría que te contactemos cuando tengamos disponibilidad?"
	}

	var b strings.Builder
	b.WriteString("Nuestros precios actuales son:\n\n")
	for _, l := range sorted {
		fmt.Fprintf(&b, "💰 **%s**: %s (%s)\n", l.Name, FormatPrice(l.Price), FormatArea(l.Area))
	}
	b.WriteString("\nTodos los precios incluyen escrituración. ¿Te interesa alguna opción de financiamiento?")
	return b.String()
}

func locationText(kb *models.KnowledgeBase) string {
	var b strings.Builder
	b.WriteString("📍 **Ubicaciones de nuestras propiedades:**\n\n")
	if len(kb.Listings) == 0 {
		b.WriteString("No hay terrenos disponibles en este momento.\n")
	}
	for _, l := range kb.Listings {
		fmt.Fprintf(&b, "%s **%s**: %s\n", glyph(l.Category), l.Name, l.Location)
	}
	b.WriteString("\n")
	if kb.Contact.Address != "" {
		fmt.Fprintf(&b, "Nuestra oficina está en %s. ", kb.Contact.Address)
	}
	b.WriteString("¿Te gustaría agendar una visita a alguna propiedad?")
	return b.String()
}

func visitText(kb *models.KnowledgeBase) string {
	c := kb.Contact
	var b strings.Builder
	b.WriteString("¡Excelente! Para agendar una visita puedes:\n\n")
	if c.Phone != "" {
		fmt.Fprintf(&b, "📞 **Llamarnos**: %s\n", c.Phone)
	}
	if c.WhatsApp != "" {
		fmt.Fprintf(&b, "📱 **WhatsApp**: https://wa.me/%s\n", c.WhatsApp)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "📧 **Email**: %s\n", c.Email)
	}
	if c.Hours != "" {
		fmt.Fprintf(&b, "🕒 **Horario**: %s\n", c.Hours)
	}
	b.WriteString("\nTambién puedes llenar nuestro formulario de contacto. ¿Qué propiedad te gustaría visitar?")
	return b.String()
}

func financingText(kb *models.KnowledgeBase) string {
	var b strings.Builder
	b.WriteString("💳 **Opciones de Financiamiento:**\n\n")

	f := kb.Financing
	if f == nil {
		b.WriteString("✅ Créditos bancarios con tasas preferenciales\n")
		b.WriteString("✅ Planes de pago directo\n")
		b.WriteString("✅ Asesoría personalizada gratuita\n")
		b.WriteString("\n¿Te gustaría una cotización personalizada?")
		return b.String()
	}

	b.WriteString("✅ Créditos bancarios con tasas preferenciales\n")
	if len(f.TermsMonths) > 0 {
		fmt.Fprintf(&b, "✅ Planes de pago directo a %s meses\n", joinTerms(f.TermsMonths))
	}
	fmt.Fprintf(&b, "✅ Enganche desde %s%%\n", formatNumber(f.DownPaymentMin))
	b.WriteString("✅ Asesoría personalizada gratuita\n")
	if len(f.Rates) > 0 {
		b.WriteString("\n**Tasas aproximadas:**\n")
		for _, r := range f.Rates {
			fmt.Fprintf(&b, "• %s: %s%% anual\n", r.Label, formatNumber(r.Percent))
		}
	}
	if len(f.Banks) > 0 {
		fmt.Fprintf(&b, "\nTrabajamos con %s.", strings.Join(f.Banks, ", "))
	} else {
		b.WriteString("\nTrabajamos con las mejores instituciones financieras.")
	}
	b.WriteString(" ¿Te gustaría una cotización personalizada?")
	return b.String()
}

func joinTerms(terms []int) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = fmt.Sprint(t)
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + " o " + parts[len(parts)-1]
}

func contactText(kb *models.KnowledgeBase) string {
	c := kb.Contact
	var b strings.Builder
	b.WriteString("📞 **Información de Contacto:**\n\n")
	if c.Company != "" {
		fmt.Fprintf(&b, "**Empresa**: %s\n", c.Company)
	}
	if c.Phone != "" {
		fmt.Fprintf(&b, "**Teléfono**: %s\n", c.Phone)
	}
	if c.Email != "" {
		fmt.Fprintf(&b, "**Email**: %s\n", c.Email)
	}
	if c.Address != "" {
		fmt.Fprintf(&b, "**Dirección**: %s\n", c.Address)
	}
	if c.Hours != "" {
		fmt.Fprintf(&b, "**Horarios**: %s\n", c.Hours)
	}

	if c.Facebook != "" || c.Instagram != "" || c.WhatsApp != "" {
		b.WriteString("\n**Redes Sociales:**\n")
		if c.Facebook != "" {
			fmt.Fprintf(&b, "- Facebook: %s\n", c.Facebook)
		}
		if c.Instagram != "" {
			fmt.Fprintf(&b, "- Instagram: %s\n", c.Instagram)
		}
		if c.WhatsApp != "" {
			fmt.Fprintf(&b, "- WhatsApp: https://wa.me/%s\n", c.WhatsApp)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func servicesText(kb *models.KnowledgeBase) string {
	var b strings.Builder
	b.WriteString("🏆 **Nuestros Servicios:**\n\n")
	for _, s := range kb.Services {
		if s.Description != "" {
			fmt.Fprintf(&b, "• **%s**: %s\n", s.Name, s.Description)
		} else {
			fmt.Fprintf(&b, "• **%s**\n", s.Name)
		}
	}
	b.WriteString("\n¿Qué servicio te interesa más?")
	return b.String()
}

const (
	greetingText = "¡Hola! Es un placer ayudarte. ¿Qué información sobre nuestros terrenos te interesa conocer?"
	thanksText   = "¡De nada! Estoy aquí para ayudarte. ¿Hay algo más en lo que pueda asistirte?"
)

// WelcomeText greets a new session and names the company when known.
func WelcomeText(kb *models.KnowledgeBase) string {
	company := kb.Contact.Company
	if company == "" {
		return "¡Hola! Soy tu asistente virtual. ¿En qué puedo ayudarte hoy?"
	}
	return fmt.Sprintf("¡Hola! Soy el asistente virtual de %s. ¿En qué puedo ayudarte hoy?", company)
}
