package risk

import (
	"github.com/alejandrodnm/polyfusion/internal/domain"
	"github.com/shopspring/decimal"
)

// DetectCrossVenueArb compara las dos coberturas de un evento listado en dos
// venues (NO en A + YES en B, o YES en A + NO en B), se queda con la más barata
// y aplica los fees de forma multiplicativa. Hay arbitraje si el coste con fees
// es menor que 1.
func DetectCrossVenueArb(priceA, priceB, feeRate float64) domain.CrossVenueArb {
	noAYesB := (1 - priceA) + priceB
	yesANoB := priceA + (1 - priceB)

	res := domain.CrossVenueArb{Direction: "NO_A_YES_B", Cost: noAYesB}
	if yesANoB < noAYesB {
		res.Direction = "YES_A_NO_B"
		res.Cost = yesANoB
	}
	res.CostWithFees = res.Cost * (1 + feeRate)
	res.ProfitPct = 1 - res.CostWithFees
	res.IsArb = res.CostWithFees < 1
	return res
}

// PlanNotional convierte un peso Kelly en USD redondeados a céntimos.
// Pesos no positivos no planifican nada.
func PlanNotional(bankroll decimal.Decimal, weight float64) decimal.Decimal {
	if weight <= 0 || !domain.Finite(weight) || bankroll.IsNegative() {
		return decimal.Zero
	}
	return bankroll.Mul(decimal.NewFromFloat(weight)).Round(2)
}
