package shots

import (
	"fmt"
	"sort"
	"strings"
)

// Field is one labelled line of an example, e.g. "Patient Symptoms: fever"
type Field struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Example is a solved input/output pair shown to the model
type Example struct {
	Inputs []Field  `json:"inputs"`
	Output []string `json:"output"`
}

// MultiShot is a few-shot prompt: instruction, worked examples, then the open query
type MultiShot struct {
	Name        string    `json:"name"`
	Instruction string    `json:"instruction"`
	Examples    []Example `json:"examples"`
	Query       []Field   `json:"query"`
	Closing     string    `json:"closing,omitempty"`
}

// Render lays the prompt out as text. Output lines are numbered from 1.
func (m MultiShot) Render() string {
	var b strings.Builder
	b.WriteString(m.Instruction)
	b.WriteString("\n\n")

	for i, ex := range m.Examples {
		fmt.Fprintf(&b, "Example %d:\n", i+1)
		writeFields(&b, ex.Inputs)
		b.WriteString("Output:\n")
		for j, line := range ex.Output {
			fmt.Fprintf(&b, "%d. %s\n", j+1, line)
		}
		b.WriteString("\n")
	}

	b.WriteString("Now your turn:\n")
	writeFields(&b, m.Query)

	if m.Closing != "" {
		b.WriteString("\n")
		b.WriteString(m.Closing)
	}

	return strings.TrimRight(b.String(), "\n")
}

func writeFields(b *strings.Builder, fields []Field) {
	for _, f := range fields {
		fmt.Fprintf(b, "%s: %s\n", f.Label, f.Value)
	}
}

// KlinikAI is the medical triage example used for multi-shot requests
var KlinikAI = MultiShot{
	Name:        "klinikai",
	Instruction: "You are a medical AI assistant for KlinikAI. Given a patient's symptoms and medical history, provide a preliminary assessment and recommendations.",
	Examples: []Example{
		{
			Inputs: []Field{
				{"Patient Symptoms", "Chest pain, shortness of breath, fatigue"},
				{"Medical History", "Hypertension, diabetes, smoker"},
			},
			Output: []string{
				"Assessment: Possible cardiac event, requires immediate evaluation",
				"Recommendations: ECG, cardiac enzymes, chest X-ray",
				"Priority: High - refer to cardiologist",
			},
		},
		{
			Inputs: []Field{
				{"Patient Symptoms", "Fever, cough, body aches"},
				{"Medical History", "No chronic conditions, recent travel"},
			},
			Output: []string{
				"Assessment: Likely viral respiratory infection",
				"Recommendations: Rest, fluids, symptomatic treatment",
				"Priority: Low - monitor for complications",
			},
		},
	},
	Query: []Field{
		{"Patient Symptoms", "Headache, nausea, sensitivity to light"},
		{"Medical History", "Migraine history, no other conditions"},
	},
	Closing: "Please provide assessment and recommendations following the same format as the examples above.",
}

// MovieRecommendation is the general-purpose example
var MovieRecommendation = MultiShot{
	Name:        "movies",
	Instruction: "You are a movie recommendation assistant. Given a user’s mood and preferred genre, suggest 3 movies with short descriptions.",
	Examples: []Example{
		{
			Inputs: []Field{
				{"User Mood", "Happy"},
				{"Preferred Genre", "Comedy"},
			},
			Output: []string{
				"The Intern – Lighthearted workplace comedy with warm moments.",
				"Crazy Rich Asians – Fun, vibrant rom-com with cultural twists.",
				"Paddington – Wholesome humor with lovable characters.",
			},
		},
		{
			Inputs: []Field{
				{"User Mood", "Thoughtful"},
				{"Preferred Genre", "Sci-Fi"},
			},
			Output: []string{
				"Arrival – Deep, emotional story about language and time.",
				"Interstellar – Space exploration with emotional stakes.",
				"Her – AI romance with introspective themes.",
			},
		},
	},
	Query: []Field{
		{"User Mood", "Adventurous"},
		{"Preferred Genre", "Action"},
	},
}

var builtins = map[string]MultiShot{
	KlinikAI.Name:            KlinikAI,
	MovieRecommendation.Name: MovieRecommendation,
}

// Lookup returns a built-in multi-shot prompt by name
func Lookup(name string) (MultiShot, bool) {
	m, ok := builtins[strings.ToLower(name)]
	return m, ok
}

// Names lists the built-in prompts
func Names() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
