package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xaenox/terrenos-bot/internal/models"
	"github.com/xaenox/terrenos-bot/internal/responder"
)

// ListingHandler serves the catalogue the assistant answers from.
type ListingHandler struct {
	kb *models.KnowledgeBase
}

func NewListingHandler(kb *models.KnowledgeBase) *ListingHandler {
	return &ListingHandler{kb: kb}
}

type listingView struct {
	models.Listing
	PriceText string `json:"price_text"`
	AreaText  string `json:"area_text"`
}

func newListingView(l models.Listing) listingView {
	return listingView{
		Listing:   l,
		PriceText: responder.FormatPrice(l.Price),
		AreaText:  responder.FormatArea(l.Area),
	}
}

// List handles GET /api/v1/listings
func (h *ListingHandler) List(w http.ResponseWriter, r *http.Request) {
	listings := h.kb.Listings
	if c := r.URL.Query().Get("category"); c != "" {
		category := models.Category(c)
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "unknown category")
			return
		}
		listings = h.kb.ListingsByCategory(category)
	}

	views := make([]listingView, len(listings))
	for i, l := range listings {
		views[i] = newListingView(l)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"listings": views,
		"total":    len(views),
	})
}

// Get handles GET /api/v1/listings/{id}
func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	l, ok := h.kb.ListingByID(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "listing not found")
		return
	}
	writeJSON(w, http.StatusOK, newListingView(l))
}
