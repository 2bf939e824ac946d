package prompting

import (
	"fmt"
	"math"
	"strings"
)

// Tier groups rules that are evaluated together. Tiers run in declaration order.
type Tier int

const (
	TierAge Tier = iota
	TierSymptomCount
	TierHistory
	TierAllergies
)

func (t Tier) String() string {
	switch t {
	case TierAge:
		return "age"
	case TierSymptomCount:
		return "symptom_count"
	case TierHistory:
		return "history"
	case TierAllergies:
		return "allergies"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// Condition is the predicate kind of an AdvisoryRule
type Condition int

const (
	// AgeBelow holds when patientAge parses and is < Threshold
	AgeBelow Condition = iota
	// AgeAtLeast holds when patientAge parses and is >= Threshold
	AgeAtLeast
	// SymptomCountAtLeast holds when symptoms has >= Threshold comma-separated segments
	SymptomCountAtLeast
	// HistoryContains holds when medicalHistory contains any of Keywords, ignoring case
	HistoryContains
	// AllergiesPresent holds when allergies is set; the advisory gets the allergy text appended
	AllergiesPresent
)

// AdvisoryRule pairs a predicate over a Context with the advisory text it appends
type AdvisoryRule struct {
	Name      string
	Tier      Tier
	Condition Condition
	Threshold int
	Keywords  []string
	Advisory  string
}

// Advisory texts
const (
	PediatricAdvisory = "IMPORTANT: This is a pediatric patient. Consider age-appropriate assessments and dosages."
	GeriatricAdvisory = "IMPORTANT: This is a geriatric patient. Consider age-related complications and polypharmacy."
	UrgentAdvisory    = "URGENT: Multiple symptoms detected. Prioritize critical assessment."
	DiabetesAdvisory  = "DIABETES ALERT: Consider blood glucose levels and diabetic complications."
	CardiacAdvisory   = "CARDIAC ALERT: Prioritize cardiovascular assessment."
	AllergyAdvisory   = "ALLERGY ALERT: Patient has allergies to: "
)

const (
	PediatricAgeLimit  = 18
	GeriatricAge       = 65
	UrgentSymptomCount = 6
	advisorySeparator  = "\n\n"
)

// DefaultRules is the built-in rule table in evaluation order.
//
// Only the high symptom-count tier produces output; counts below UrgentSymptomCount append nothing.
// The cardiac rule matches "hypertension" as well as "heart".
var DefaultRules = []AdvisoryRule{
	{Name: "pediatric", Tier: TierAge, Condition: AgeBelow, Threshold: PediatricAgeLimit, Advisory: PediatricAdvisory},
	{Name: "geriatric", Tier: TierAge, Condition: AgeAtLeast, Threshold: GeriatricAge, Advisory: GeriatricAdvisory},
	{Name: "multiple_symptoms", Tier: TierSymptomCount, Condition: SymptomCountAtLeast, Threshold: UrgentSymptomCount, Advisory: UrgentAdvisory},
	{Name: "diabetes", Tier: TierHistory, Condition: HistoryContains, Keywords: []string{"diabetes"}, Advisory: DiabetesAdvisory},
	{Name: "cardiac", Tier: TierHistory, Condition: HistoryContains, Keywords: []string{"heart", "hypertension"}, Advisory: CardiacAdvisory},
	{Name: "allergies", Tier: TierAllergies, Condition: AllergiesPresent, Advisory: AllergyAdvisory},
}

// exclusiveTiers stop at their first matching rule
var exclusiveTiers = map[Tier]bool{
	TierAge: true,
}

// ApplyRules appends the advisories of DefaultRules that hold for ctx
func ApplyRules(template string, ctx Context) string {
	return ApplyRuleSet(DefaultRules, template, ctx)
}

// ApplyRuleSet appends, in order, the advisory of every rule in rules that holds for ctx.
// Within an exclusive tier only the first matching rule fires.
func ApplyRuleSet(rules []AdvisoryRule, template string, ctx Context) string {
	var b strings.Builder
	b.WriteString(template)

	fired := make(map[Tier]bool)
	for _, rule := range rules {
		if exclusiveTiers[rule.Tier] && fired[rule.Tier] {
			continue
		}
		advisory, ok := rule.Evaluate(ctx)
		if !ok {
			continue
		}
		fired[rule.Tier] = true
		b.WriteString(advisorySeparator)
		b.WriteString(advisory)
	}
	return b.String()
}

// MatchingRules returns the names of the rules that fire for ctx, in evaluation order
func MatchingRules(rules []AdvisoryRule, ctx Context) []string {
	var names []string
	fired := make(map[Tier]bool)
	for _, rule := range rules {
		if exclusiveTiers[rule.Tier] && fired[rule.Tier] {
			continue
		}
		if _, ok := rule.Evaluate(ctx); ok {
			fired[rule.Tier] = true
			names = append(names, rule.Name)
		}
	}
	return names
}

// Evaluate reports whether the rule holds for ctx and returns the text to append.
// Missing or malformed fields make the predicate false.
func (r AdvisoryRule) Evaluate(ctx Context) (string, bool) {
	switch r.Condition {
	case AgeBelow:
		age, ok := patientAge(ctx)
		return r.Advisory, ok && age < r.Threshold
	case AgeAtLeast:
		age, ok := patientAge(ctx)
		return r.Advisory, ok && age >= r.Threshold
	case SymptomCountAtLeast:
		symptoms, ok := ctx[FieldSymptoms].(string)
		if !ok || symptoms == "" {
			return "", false
		}
		return r.Advisory, len(strings.Split(symptoms, ",")) >= r.Threshold
	case HistoryContains:
		history, ok := ctx[FieldMedicalHistory].(string)
		if !ok || history == "" {
			return "", false
		}
		history = strings.ToLower(history)
		for _, kw := range r.Keywords {
			if strings.Contains(history, strings.ToLower(kw)) {
				return r.Advisory, true
			}
		}
		return "", false
	case AllergiesPresent:
		allergies, ok := allergyText(ctx)
		if !ok {
			return "", false
		}
		return r.Advisory + allergies, true
	}
	return "", false
}

func patientAge(ctx Context) (int, bool) {
	v, ok := ctx[FieldPatientAge]
	if !ok || isBlank(v) {
		return 0, false
	}
	switch t := v.(type) {
	case string:
		return leadingInt(t)
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case float64:
		return clampAge(t)
	case float32:
		return clampAge(float64(t))
	}
	return 0, false
}

// clampAge truncates f toward zero, saturating at the int32 range
func clampAge(f float64) (int, bool) {
	switch {
	case math.IsNaN(f):
		return 0, false
	case f >= math.MaxInt32:
		return math.MaxInt32, true
	case f <= math.MinInt32:
		return math.MinInt32, true
	}
	return int(f), true
}

// leadingInt parses the integer prefix of s after leading whitespace, so "45 years" is 45
// and "12.5" is 12. Values beyond the int32 range saturate.
func leadingInt(s string) (int, bool) {
	s = strings.TrimLeft(s, " \t\r\n")
	neg := false
	if s != "" && (s[0] == '-' || s[0] == '+') {
		neg = s[0] == '-'
		s = s[1:]
	}
	n, digits := 0, 0
	for digits < len(s) && s[digits] >= '0' && s[digits] <= '9' {
		if n > (math.MaxInt32-9)/10 {
			n = math.MaxInt32
		} else {
			n = n*10 + int(s[digits]-'0')
		}
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	if neg {
		n = -n
	}
	return n, true
}

func allergyText(ctx Context) (string, bool) {
	switch t := ctx[FieldAllergies].(type) {
	case string:
		return t, t != ""
	case []string:
		if len(t) == 0 {
			return "", false
		}
		return strings.Join(t, ", "), true
	case []interface{}:
		if len(t) == 0 {
			return "", false
		}
		return textOf(t), true
	}
	return "", false
}
