package responder

import (
	"math"

	"github.com/xaenox/terrenos-bot/internal/models"
)

const (
	mortgageAnnualRate = 5.0
	mortgageYears      = 30
	defaultDownPayment = 20.0
	monthsPerYear      = 12
)

func downPayment(kb *models.KnowledgeBase) float64 {
	if kb.Financing != nil && kb.Financing.DownPaymentMin > 0 {
		return kb.Financing.DownPaymentMin
	}
	return defaultDownPayment
}

// EstimateMonthly returns the fixed-rate monthly payment for price after a
// down payment of downPercent, at 5% annual over 30 years.
func EstimateMonthly(price models.Price, downPercent float64) (models.Price, bool) {
	return estimateMonthly(price, downPercent)
}

func estimateMonthly(price models.Price, downPercent float64) (models.Price, bool) {
	if price.Amount <= 0 || downPercent < 0 || downPercent >= 100 {
		return models.Price{}, false
	}

	principal := price.Amount * (1 - downPercent/100)
	r := mortgageAnnualRate / 100 / monthsPerYear
	n := float64(mortgageYears * monthsPerYear)
	payment := principal * r / (1 - math.Pow(1+r, -n))

	return models.Price{Amount: math.Round(payment), Currency: price.Currency}, true
}
