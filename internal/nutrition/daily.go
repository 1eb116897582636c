package nutrition

import "github.com/shopspring/decimal"

// Band is an inclusive target range in grams.
type Band struct {
	Min decimal.Decimal `json:"min"`
	Max decimal.Decimal `json:"max"`
}

// Contains reports whether v lies within the band.
func (b Band) Contains(v decimal.Decimal) bool {
	return v.GreaterThanOrEqual(b.Min) && v.LessThanOrEqual(b.Max)
}

// Score is 100 inside the band and falls off linearly outside it.
func (b Band) Score(v decimal.Decimal) float64 {
	hundred := decimal.NewFromInt(100)
	switch {
	case b.Contains(v):
		return 100
	case v.LessThan(b.Min):
		return v.DivRound(b.Min, 4).Mul(hundred).InexactFloat64()
	default:
		return b.Max.DivRound(v, 4).Mul(hundred).InexactFloat64()
	}
}

var (
	DailyProtein       = Band{Min: decimal.NewFromInt(20), Max: decimal.NewFromInt(30)}
	DailyCarbohydrates = Band{Min: decimal.NewFromInt(50), Max: decimal.NewFromInt(80)}
)

// DailyReport is the result of checking one day of intake against the daily bands.
type DailyReport struct {
	Totals              Totals  `json:"totals"`
	ProteinInRange      bool    `json:"protein_in_range"`
	CarbohydrateInRange bool    `json:"carbohydrate_in_range"`
	Valid               bool    `json:"valid"`
	BalanceScore        float64 `json:"balance_score"`
}

// ValidateDaily reports whether protein and carbohydrate both fall in their daily bands.
func ValidateDaily(t Totals) bool {
	return DailyProtein.Contains(t.Protein) && DailyCarbohydrates.Contains(t.Carbohydrates)
}

// BalanceScore averages the protein and carbohydrate band scores, rounded to 2 places.
func BalanceScore(t Totals) float64 {
	avg := (DailyProtein.Score(t.Protein) + DailyCarbohydrates.Score(t.Carbohydrates)) / 2
	return decimal.NewFromFloat(avg).Round(2).InexactFloat64()
}

// Daily builds the full report for a day's totals.
func Daily(t Totals) DailyReport {
	p := DailyProtein.Contains(t.Protein)
	c := DailyCarbohydrates.Contains(t.Carbohydrates)
	return DailyReport{
		Totals:              t,
		ProteinInRange:      p,
		CarbohydrateInRange: c,
		Valid:               p && c,
		BalanceScore:        BalanceScore(t),
	}
}
