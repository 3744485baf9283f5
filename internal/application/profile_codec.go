package application

import (
	"encoding/json"
	"math"

	"github.com/oksasatya/fitness-onboarding/internal/domain/entity"
	"github.com/oksasatya/fitness-onboarding/internal/domain/repository"
)

// profileFromDocument reads a stored record. Fields with the wrong type are
// treated as absent, the same as a missing field.
func profileFromDocument(doc repository.Document) entity.UserProfile {
	p := entity.DefaultProfile()
	if doc == nil {
		return p
	}
	p.Name = stringField(doc, entity.FieldName)
	p.Email = stringField(doc, entity.FieldEmail)
	if v, ok := numberField(doc, entity.FieldCreatedAt); ok {
		p.CreatedAt = int64(v)
	}
	if g := entity.Gender(stringField(doc, entity.FieldGender)); g.Valid() {
		p.Gender = g
	}
	if v, ok := numberField(doc, entity.FieldAge); ok {
		p.Age = int(v)
	}
	if v, ok := numberField(doc, entity.FieldHeight); ok {
		p.HeightCm = v
	}
	if v, ok := numberField(doc, entity.FieldWeight); ok {
		p.WeightKg = v
	}
	if a := entity.ActivityLevel(stringField(doc, entity.FieldActivityLevel)); a.Valid() {
		p.ActivityLevel = a
		// the multiplier always follows the level, whatever was stored
		p.ActivityMultiplier, _ = a.Multiplier()
	}
	if v, ok := numberField(doc, entity.FieldBMI); ok {
		p.BMI = v
	}
	p.RecommendedPlan = entity.PlanKey(stringField(doc, entity.FieldRecommendedPlan))
	if b, ok := doc[entity.FieldProfileCompleted].(bool); ok {
		p.ProfileCompleted = b
	}
	return p
}

func stringField(doc repository.Document, key string) string {
	s, _ := doc[key].(string)
	return s
}

func numberField(doc repository.Document, key string) (float64, bool) {
	var f float64
	switch v := doc[key].(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// anthropometricFields is the write set of the profile-details step.
func anthropometricFields(in AnthropometricsInput) repository.Document {
	return repository.Document{
		entity.FieldGender:           string(in.Gender),
		entity.FieldAge:              in.Age,
		entity.FieldHeight:           in.HeightCm,
		entity.FieldWeight:           in.WeightKg,
		entity.FieldProfileCompleted: true,
	}
}

// projectionDocument is the full profile as sent to the search index and archive.
func projectionDocument(id Identity, p entity.UserProfile) repository.Document {
	return repository.Document{
		"id":                           id.String(),
		entity.FieldName:               p.Name,
		entity.FieldEmail:              p.Email,
		entity.FieldCreatedAt:          p.CreatedAt,
		entity.FieldGender:             string(p.Gender),
		entity.FieldAge:                p.Age,
		entity.FieldHeight:             p.HeightCm,
		entity.FieldWeight:             p.WeightKg,
		entity.FieldActivityLevel:      string(p.ActivityLevel),
		entity.FieldActivityMultiplier: p.ActivityMultiplier,
		entity.FieldBMI:                p.BMI,
		entity.FieldRecommendedPlan:    string(p.RecommendedPlan),
		entity.FieldProfileCompleted:   p.ProfileCompleted,
		"stage":                        string(p.Stage()),
	}
}
