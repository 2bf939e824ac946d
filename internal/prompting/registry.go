package prompting

// Category selects a family of prompt templates
type Category string

const (
	SymptomAnalysis Category = "symptomAnalysis"
	Diagnosis       Category = "diagnosis"
	Treatment       Category = "treatment"
)

// Variant names one template within a category
type Variant string

const (
	Basic         Variant = "basic"
	Detailed      Variant = "detailed"
	Emergency     Variant = "emergency"
	General       Variant = "general"
	Specific      Variant = "specific"
	Differential  Variant = "differential"
	Immediate     Variant = "immediate"
	Comprehensive Variant = "comprehensive"
	Followup      Variant = "followup"
)

// FallbackTemplate is returned for any category/variant pair the registry does not know
const FallbackTemplate = "Analyze: {input}"

type templateSet struct {
	primary  Variant
	order    []Variant
	variants map[Variant]string
}

// Registry maps category x variant to template strings. It is read-only after construction.
type Registry struct {
	order      []Category
	categories map[Category]*templateSet
}

// TemplateInfo describes one registered template
type TemplateInfo struct {
	Category Category `json:"category"`
	Variant  Variant  `json:"variant"`
	Primary  bool     `json:"primary"`
	Template string   `json:"template"`
}

// NewRegistry returns the built-in medical template table
func NewRegistry() *Registry {
	r := &Registry{categories: make(map[Category]*templateSet)}

	r.add(SymptomAnalysis, Basic, []variantTemplate{
		{Basic, "Analyze the following symptoms: {symptoms}"},
		{Detailed, "Provide a detailed analysis of symptoms: {symptoms}. Consider patient history: {history}"},
		{Emergency, "URGENT: Analyze these symptoms for emergency assessment: {symptoms}. Patient history: {history}"},
	})
	r.add(Diagnosis, Specific, []variantTemplate{
		{General, "Based on symptoms: {symptoms}, suggest possible diagnoses"},
		{Specific, "Given symptoms: {symptoms} and medical history: {history}, what are the most likely diagnoses?"},
		{Differential, "Create a differential diagnosis for: {symptoms}. Include common and rare conditions."},
	})
	r.add(Treatment, Comprehensive, []variantTemplate{
		{Immediate, "What immediate treatment steps for: {symptoms}?"},
		{Comprehensive, "Provide comprehensive treatment plan for: {diagnosis}"},
		{Followup, "What follow-up care is needed for: {condition}?"},
	})

	return r
}

type variantTemplate struct {
	variant  Variant
	template string
}

func (r *Registry) add(category Category, primary Variant, templates []variantTemplate) {
	set := &templateSet{
		primary:  primary,
		variants: make(map[Variant]string, len(templates)),
	}
	for _, t := range templates {
		set.order = append(set.order, t.variant)
		set.variants[t.variant] = t.template
	}
	r.order = append(r.order, category)
	r.categories[category] = set
}

// Resolve returns the template for category/variant, or FallbackTemplate when either is unknown
func (r *Registry) Resolve(category Category, variant Variant) string {
	set, ok := r.categories[category]
	if !ok {
		return FallbackTemplate
	}
	tmpl, ok := set.variants[variant]
	if !ok {
		return FallbackTemplate
	}
	return tmpl
}

// Default returns the "basic" template when the category has one and its primary template otherwise.
func (r *Registry) Default(category Category) string {
	set, ok := r.categories[category]
	if !ok {
		return FallbackTemplate
	}
	if tmpl, ok := set.variants[Basic]; ok {
		return tmpl
	}
	return r.Resolve(category, set.primary)
}

// Categories lists registered categories in declaration order
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.order))
	copy(out, r.order)
	return out
}

// Variants lists the variants of a category in declaration order; nil for unknown categories
func (r *Registry) Variants(category Category) []Variant {
	set, ok := r.categories[category]
	if !ok {
		return nil
	}
	out := make([]Variant, len(set.order))
	copy(out, set.order)
	return out
}

// Templates flattens the registry for listing
func (r *Registry) Templates() []TemplateInfo {
	var infos []TemplateInfo
	for _, c := range r.order {
		set := r.categories[c]
		for _, v := range set.order {
			infos = append(infos, TemplateInfo{
				Category: c,
				Variant:  v,
				Primary:  v == set.primary,
				Template: set.variants[v],
			})
		}
	}
	return infos
}
