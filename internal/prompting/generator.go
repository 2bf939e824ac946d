package prompting

import "strings"

// Prompt is a finished prompt together with the category it was built from and the names of
// the advisory rules that fired
type Prompt struct {
	Category   Category `json:"category"`
	Text       string   `json:"prompt"`
	Advisories []string `json:"advisories,omitempty"`
}

func (p Prompt) String() string {
	return p.Text
}

// emergencyPhrases route a medical assessment to the diagnosis templates
var emergencyPhrases = []string{"chest pain", "shortness of breath"}

// Generator builds prompts from the registry and rule table. It holds no per-call state and is
// safe for concurrent use.
type Generator struct {
	Registry *Registry
	Rules    []AdvisoryRule
}

// NewGenerator returns a Generator over the built-in templates and rules
func NewGenerator() *Generator {
	return &Generator{
		Registry: NewRegistry(),
		Rules:    DefaultRules,
	}
}

// GenerateDynamicPrompt resolves the category's default template, appends advisories and fills
// placeholders. The context seen by rules and filler is defaults overlaid by ctx, with input set
// to userInput.
func (g *Generator) GenerateDynamicPrompt(defaults Context, category Category, userInput string, ctx Context) Prompt {
	full := Merge(defaults, ctx, Context{FieldInput: userInput})
	if _, ok := full.Text(FieldHistory); !ok {
		if history, ok := full.Text(FieldMedicalHistory); ok {
			full[FieldHistory] = history
		}
	}

	base := g.Registry.Default(category)
	withRules := ApplyRuleSet(g.Rules, base, full)

	return Prompt{
		Category:   category,
		Text:       Fill(withRules, full),
		Advisories: MatchingRules(g.Rules, full),
	}
}

// GenerateMedicalAssessment builds a symptom prompt. Symptoms mentioning chest pain or shortness
// of breath switch to the diagnosis templates and flag the context as an emergency.
func (g *Generator) GenerateMedicalAssessment(defaults Context, symptoms string, extra Context) Prompt {
	ctx := Merge(Context{FieldSymptoms: symptoms}, extra)

	category := SymptomAnalysis
	if IsEmergency(symptoms) {
		category = Diagnosis
		ctx[FieldEmergency] = true
	}

	return g.GenerateDynamicPrompt(defaults, category, symptoms, ctx)
}

// GenerateTreatmentRecommendation builds a treatment prompt for a diagnosis
func (g *Generator) GenerateTreatmentRecommendation(defaults Context, diagnosis string, extra Context) Prompt {
	ctx := Merge(Context{FieldDiagnosis: diagnosis}, extra)
	return g.GenerateDynamicPrompt(defaults, Treatment, diagnosis, ctx)
}

// IsEmergency reports whether symptom text names an emergency presentation
func IsEmergency(symptoms string) bool {
	lower := strings.ToLower(symptoms)
	for _, phrase := range emergencyPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
