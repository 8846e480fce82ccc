// Package scoring computes the fixed lead score assigned at intake.
package scoring

import "leadflow_backend/internal/leads/domain"

// CompletionBonus is added for a fully completed form.
const CompletionBonus = 20

// defaultBase applies to "other" and any unrecognized category.
const defaultBase = 10

var baseScores = map[domain.BusinessType]int{
	domain.BusinessSalon:      30,
	domain.BusinessRestaurant: 25,
	domain.BusinessClinic:     20,
	domain.BusinessDentist:    20,
	domain.BusinessSpa:        15,
	domain.BusinessGym:        15,
	domain.BusinessRetail:     10,
	domain.BusinessOther:      defaultBase,
}

// Breakdown exposes how a score was composed.
type Breakdown struct {
	Base  int
	Bonus int
	Total int
}

// Base returns the category score.
func Base(businessType domain.BusinessType) int {
	if score, ok := baseScores[businessType]; ok {
		return score
	}
	return defaultBase
}

// Explain scores a submission and returns the components.
func Explain(businessType domain.BusinessType, formCompleted bool) Breakdown {
	b := Breakdown{Base: Base(businessType)}
	if formCompleted {
		b.Bonus = CompletionBonus
	}
	b.Total = b.Base + b.Bonus
	return b
}

// Score returns the lead score for a submission.
func Score(businessType domain.BusinessType, formCompleted bool) int {
	return Explain(businessType, formCompleted).Total
}
