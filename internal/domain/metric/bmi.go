// Package metric computes Body Mass Index and the plan recommended for it.
// Everything here is pure: no I/O, no clocks, no hidden state.
package metric

import (
	"math"
	"strconv"
	"strings"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
)

// Unavailable is returned by ComputeBMI when no BMI can be computed yet.
// Callers must treat it as "not computable", never as a real score.
const Unavailable = 0.0

// Tier boundaries. Each is the inclusive lower bound of the next tier.
const (
	UnderweightBelow = 18.5
	OverweightFrom   = 25.0
)

const (
	heading     = "Your BMI is"
	bmiSlot     = "{BMI}"
	missingText = "--"
)

// ComputeBMI returns weightKg / (heightCm/100)^2 without rounding.
// Zero, negative or non-finite results yield Unavailable.
func ComputeBMI(heightCm, weightKg float64) float64 {
	if heightCm <= 0 || weightKg <= 0 {
		return Unavailable
	}
	m := heightCm / 100
	v := weightKg / (m * m)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Unavailable
	}
	return v
}

// Plan is the classification of a BMI value plus its fixed guidance text.
type Plan struct {
	Key         entity.PlanKey `json:"plan_key"`
	Heading     string         `json:"heading"`
	Status      string         `json:"status"`
	Title       string         `json:"title"`
	Subtitle    string         `json:"subtitle"`
	Description string         `json:"description"`
}

var (
	gainPlan = Plan{
		Key:      entity.PlanGain,
		Heading:  heading,
		Status:   "Underweight",
		Title:    "Gain Weight",
		Subtitle: "Reach a healthier BMI range",
		Description: "A BMI of {BMI} is below the ideal range.\n" +
			"Gaining weight gradually with a balanced diet and strength training can help you reach a healthier range.",
	}
	maintainPlan = Plan{
		Key:      entity.PlanMaintain,
		Heading:  heading,
		Status:   "Normal",
		Title:    "Maintain Weight",
		Subtitle: "Stay within a healthy BMI range",
		Description: "A BMI of {BMI} is within the ideal range.\n" +
			"Maintaining your current habits (balanced meals + regular activity) helps keep you healthy.",
	}
	losePlan = Plan{
		Key:      entity.PlanLose,
		Heading:  heading,
		Status:   "Overweight",
		Title:    "Lose Weight",
		Subtitle: "Achieve a healthier BMI range",
		Description: "A BMI of {BMI} is above the ideal range.\n" +
			"Reducing your weight by 5–10% can significantly lower health risks such as blood pressure and heart strain.",
	}
)

// Classify maps a BMI to one of three plans. There is deliberately no
// separate obese tier: everything from 25 up is "lose".
func Classify(bmi float64) Plan {
	switch {
	case bmi < UnderweightBelow:
		return gainPlan
	case bmi < OverweightFrom:
		return maintainPlan
	default:
		return losePlan
	}
}

// Describe fills the description's BMI slot with the display value.
func (p Plan) Describe(bmi float64) string {
	return strings.Replace(p.Description, bmiSlot, FormatForDisplay(bmi), 1)
}

// RoundForStorage rounds to 2 decimal places, the precision persisted.
func RoundForStorage(bmi float64) float64 {
	return math.Round(bmi*100) / 100
}

// FormatForDisplay renders one decimal place, or "--" when unavailable.
func FormatForDisplay(bmi float64) string {
	if bmi == Unavailable {
		return missingText
	}
	return strconv.FormatFloat(bmi, 'f', 1, 64)
}

// Analysis bundles everything a results screen shows for a height/weight pair.
type Analysis struct {
	BMI         float64 `json:"bmi"`
	BMIText     string  `json:"bmi_text"`
	Available   bool    `json:"available"`
	Plan        Plan    `json:"plan"`
	Description string  `json:"description"`
}

// Analyze computes, classifies and renders in one step.
func Analyze(heightCm, weightKg float64) Analysis {
	bmi := ComputeBMI(heightCm, weightKg)
	plan := Classify(bmi)
	return Analysis{
		BMI:         bmi,
		BMIText:     FormatForDisplay(bmi),
		Available:   bmi != Unavailable,
		Plan:        plan,
		Description: plan.Describe(bmi),
	}
}
