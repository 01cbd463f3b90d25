package clip

import (
	"github.com/shopspring/decimal"

	"moneyclip/internal/models"
)

// Recommendation band floors. A new clip on a floor belongs to the band above it.
var (
	comfortableFloor  = decimal.NewFromInt(20)
	tightFloor        = decimal.Zero
	slightlyOverFloor = decimal.NewFromInt(-10)
)

// Evaluate reports how a one-off expense would change the current daily clip.
// The band is chosen from the rounded new clip, the figure the caller sees.
func Evaluate(current *models.DailyClipResult, expense decimal.Decimal) *models.ScenarioResult {
	impact := dailyAmount(expense, current.DaysRemaining)
	newClip := models.NewMoney(current.DailyClip.Sub(impact))

	return &models.ScenarioResult{
		CurrentClip:     current.DailyClip,
		NewClip:         newClip,
		Impact:          models.NewMoney(impact),
		ScenarioExpense: models.NewMoney(expense),
		Recommendation:  Recommend(newClip.Decimal),
		DaysAffected:    current.DaysRemaining,
		Mode:            current.Mode,
	}
}

// Recommend maps a daily clip to its qualitative band
func Recommend(newClip decimal.Decimal) models.Recommendation {
	switch {
	case newClip.GreaterThanOrEqual(comfortableFloor):
		return models.ComfortablyAffordable
	case newClip.GreaterThanOrEqual(tightFloor):
		return models.AffordableButTightens
	case newClip.GreaterThanOrEqual(slightlyOverFloor):
		return models.SlightlyOverBudget
	default:
		return models.SignificantBudgetImpact
	}
}
