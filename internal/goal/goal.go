// Package goal computes a personalized daily hydration goal from the
// user profile.
package goal

import (
	"math"

	"hydromate/internal/model"
)

const (
	// BaseML is the starting volume before profile adjustments.
	BaseML = 1500

	// MaleBonusML is added for male users.
	MaleBonusML = 500

	// WeightReferenceKg is the pivot weight: every kg above it adds
	// WeightStepML, every kg below subtracts it.
	WeightReferenceKg = 50
	WeightStepML      = 10

	// WeightCapML caps the weight adjustment. The adjustment is not
	// floored, so very light users can end up below BaseML.
	WeightCapML = 1000

	// ActivityBonusML is added for a very active lifestyle.
	ActivityBonusML = 200

	// ClimateBonusML is added for a hot climate.
	ClimateBonusML = 200
)

// Compute derives the hydration goal range from a profile. Missing or
// zero fields contribute no adjustment; there are no error conditions.
func Compute(profile model.UserProfile) model.GoalRange {
	base := float64(BaseML)

	if profile.Gender == model.GenderMale {
		base += MaleBonusML
	}
	if profile.WeightKg > 0 {
		base += math.Min(WeightCapML, float64(profile.WeightKg-WeightReferenceKg)*WeightStepML)
	}
	if profile.ActivityLevel == model.ActivityVery {
		base += ActivityBonusML
	}
	if profile.Climate == model.ClimateHot {
		base += ClimateBonusML
	}

	return model.GoalRange{
		Min: int(math.Round(base * 0.9)),
		Max: int(math.Round(base * 1.1)),
	}
}

// FromChoice resolves a concrete goal value from a range and the user's
// recorded choice. Custom goals are stored separately and never pass
// through here.
func FromChoice(r model.GoalRange, choice model.GoalChoice) int {
	if choice == model.GoalChoiceMax {
		return r.Max
	}
	return r.Min
}
