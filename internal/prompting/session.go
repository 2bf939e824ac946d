package prompting

import "sync"

// Session owns the long-lived "current context" that the application updates between calls and
// feeds to a Generator as defaults.
type Session struct {
	generator *Generator
	mu        sync.RWMutex
	current   Context
}

// NewSession starts a session with DefaultContext
func NewSession(g *Generator) *Session {
	if g == nil {
		g = NewGenerator()
	}
	return &Session{
		generator: g,
		current:   DefaultContext(),
	}
}

// Generator returns the underlying prompt generator
func (s *Session) Generator() *Generator {
	return s.generator
}

// UpdateContext shallow-merges fields into the current context
func (s *Session) UpdateContext(fields Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = Merge(s.current, fields)
}

// CurrentContext returns a copy of the current context
func (s *Session) CurrentContext() Context {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

// ResetContext restores DefaultContext
func (s *Session) ResetContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = DefaultContext()
}

func (s *Session) GenerateDynamicPrompt(category Category, userInput string, ctx Context) Prompt {
	return s.generator.GenerateDynamicPrompt(s.CurrentContext(), category, userInput, ctx)
}

func (s *Session) GenerateMedicalAssessment(symptoms string, extra Context) Prompt {
	return s.generator.GenerateMedicalAssessment(s.CurrentContext(), symptoms, extra)
}

func (s *Session) GenerateTreatmentRecommendation(diagnosis string, extra Context) Prompt {
	return s.generator.GenerateTreatmentRecommendation(s.CurrentContext(), diagnosis, extra)
}
