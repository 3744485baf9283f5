package entity

// Gender of the profile owner.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// Valid reports whether g is one of the supported genders.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// ActivityLevel is the self-reported activity tier.
type ActivityLevel string

const (
	ActivityUnset       ActivityLevel = ""
	ActivitySedentary   ActivityLevel = "sedentary"
	ActivityLight       ActivityLevel = "light"
	ActivityModerate    ActivityLevel = "moderate"
	ActivityVeryActive  ActivityLevel = "very_active"
	ActivityExtraActive ActivityLevel = "extra_active"
)

// ActivityOption describes one selectable activity level.
type ActivityOption struct {
	Level      ActivityLevel `json:"key"`
	Title      string        `json:"title"`
	Subtitle   string        `json:"subtitle"`
	Multiplier float64       `json:"multiplier"`
}

// ActivityOptions is the single source of truth for activity levels and
// their multipliers, in display order.
var ActivityOptions = []ActivityOption{
	{Level: ActivitySedentary, Title: "Sedentary", Subtitle: "Little to no exercise", Multiplier: 1.2},
	{Level: ActivityLight, Title: "Light", Subtitle: "Exercise 1–3 days/week", Multiplier: 1.375},
	{Level: ActivityModerate, Title: "Moderate", Subtitle: "Exercise 3–5 days/week", Multiplier: 1.55},
	{Level: ActivityVeryActive, Title: "Very Active", Subtitle: "Exercise 6–7 days/week", Multiplier: 1.725},
	{Level: ActivityExtraActive, Title: "Extra Active", Subtitle: "Exercise 2 times a day", Multiplier: 1.9},
}

// Multiplier returns the constant associated with the level.
// ok is false for unset or unknown levels.
func (a ActivityLevel) Multiplier() (float64, bool) {
	for _, o := range ActivityOptions {
		if o.Level == a {
			return o.Multiplier, true
		}
	}
	return 0, false
}

// Valid reports whether a is a known, set level.
func (a ActivityLevel) Valid() bool {
	_, ok := a.Multiplier()
	return ok
}

// PlanKey is the categorical recommendation derived from BMI.
type PlanKey string

const (
	PlanGain     PlanKey = "gain"
	PlanMaintain PlanKey = "maintain"
	PlanLose     PlanKey = "lose"
)

// Document field names. These are the persisted schema of a profile record.
const (
	FieldName               = "name"
	FieldEmail              = "email"
	FieldCreatedAt          = "createdAt"
	FieldGender             = "gender"
	FieldAge                = "age"
	FieldHeight             = "height"
	FieldWeight             = "weight"
	FieldProfileCompleted   = "profileCompleted"
	FieldActivityLevel      = "activityLevel"
	FieldActivityMultiplier = "activityMultiplier"
	FieldBMI                = "bmi"
	FieldRecommendedPlan    = "recommendedPlan"
)

// UserProfile is one user's onboarding record. Numeric zero values mean
// "not entered yet"; the Has* helpers are derived from them for resume.
type UserProfile struct {
	Name               string        `json:"name"`
	Email              string        `json:"email"`
	CreatedAt          int64         `json:"created_at"`
	Gender             Gender        `json:"gender"`
	Age                int           `json:"age"`
	HeightCm           float64       `json:"height_cm"`
	WeightKg           float64       `json:"weight_kg"`
	ActivityLevel      ActivityLevel `json:"activity_level"`
	ActivityMultiplier float64       `json:"activity_multiplier"`
	BMI                float64       `json:"bmi"`
	RecommendedPlan    PlanKey       `json:"recommended_plan"`
	ProfileCompleted   bool          `json:"profile_completed"`
}

// DefaultProfile is what a missing record loads as.
func DefaultProfile() UserProfile {
	return UserProfile{Gender: GenderMale, ActivityLevel: ActivityUnset}
}

func (p UserProfile) HasAnthropometrics() bool {
	return p.Age > 0 && p.HeightCm > 0 && p.WeightKg > 0
}

func (p UserProfile) HasActivity() bool { return p.ActivityLevel != ActivityUnset }

func (p UserProfile) HasBMI() bool { return p.BMI > 0 }

// Stage is the resumable onboarding position derived from which fields exist.
type Stage string

const (
	StageRegistered       Stage = "registered"
	StageProfileEntered   Stage = "profile_entered"
	StageActivityLevelSet Stage = "activity_level_set"
	StageBmiComputed      Stage = "bmi_computed"
	StageComplete         Stage = "complete"
)

// Stage derives the furthest step reached. Steps are checked in order so a
// record with a BMI but no activity level still resumes at activity entry.
func (p UserProfile) Stage() Stage {
	if !p.HasAnthropometrics() {
		return StageRegistered
	}
	if !p.HasActivity() {
		return StageProfileEntered
	}
	if !p.HasBMI() {
		return StageActivityLevelSet
	}
	if !p.ProfileCompleted {
		return StageBmiComputed
	}
	return StageComplete
}
