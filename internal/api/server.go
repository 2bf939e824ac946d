package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/engine"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/prompting"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/provider"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/shots"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/throttle"
	"github.com/kalviumcommunity/GenAi-KlinikAI/internal/usage"
)

type Server struct {
	Engine *engine.Engine
	Logger *logrus.Entry
	Router *http.ServeMux
}

func NewServer(eng *engine.Engine, logger *logrus.Entry) *Server {
	s := &Server{
		Engine: eng,
		Logger: logger,
		Router: http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.HandleFunc("/api/v1/prompts/dynamic", s.handleDynamicPrompt)
	s.Router.HandleFunc("/api/v1/prompts/assessment", s.handleAssessment)
	s.Router.HandleFunc("/api/v1/prompts/treatment", s.handleTreatment)
	s.Router.HandleFunc("/api/v1/prompts/templates", s.handleTemplates)
	s.Router.HandleFunc("/api/v1/context", s.handleContext)
	s.Router.HandleFunc("/api/v1/shots", s.handleShots)
	s.Router.HandleFunc("/api/v1/send", s.handleSend)
	s.Router.HandleFunc("/api/v1/settings", s.handleSettings)
	s.Router.HandleFunc("/api/v1/usage", s.handleUsage)
	s.Router.HandleFunc("/api/v1/status", s.handleStatus)
	s.Router.Handle("/metrics", promhttp.Handler())
}

func (s *Server) Start(addr string) error {
	s.Logger.Infof("Starting API Server on %s", addr)
	return http.ListenAndServe(addr, s.Router)
}

// Responses
type ErrorResponse struct {
	Error string `json:"error"`
}

type ContextResponse struct {
	Context prompting.Context `json:"context"`
}

type TemplatesResponse struct {
	Categories []prompting.Category     `json:"categories"`
	Templates  []prompting.TemplateInfo `json:"templates"`
}

type ShotResponse struct {
	Name   string   `json:"name"`
	Prompt string   `json:"prompt"`
	Names  []string `json:"available"`
}

type SettingsView struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	APIKeySet   bool    `json:"api_key_set"`
}

type UsageResponse struct {
	Stats   usage.Stats   `json:"stats"`
	Pricing usage.Pricing `json:"pricing"`
}

type StatusResponse struct {
	Provider string              `json:"provider"`
	Model    string              `json:"model"`
	Requests int64               `json:"requests"`
	Throttle throttle.Statistics `json:"throttle"`
	Uptime   string              `json:"uptime"`
}

// Handlers

func (s *Server) handleDynamicPrompt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Category prompting.Category `json:"category"`
		Input    string             `json:"input"`
		Context  prompting.Context  `json:"context"`
	}
	if !decode(w, r, &req) {
		return
	}

	if req.Category == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "category is required"})
		return
	}

	jsonResponse(w, http.StatusOK, s.Engine.GenerateDynamicPrompt(req.Category, req.Input, req.Context))
}

func (s *Server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Symptoms string            `json:"symptoms"`
		Context  prompting.Context `json:"context"`
	}
	if !decode(w, r, &req) {
		return
	}

	if req.Symptoms == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "symptoms are required"})
		return
	}

	jsonResponse(w, http.StatusOK, s.Engine.GenerateMedicalAssessment(req.Symptoms, req.Context))
}

func (s *Server) handleTreatment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Diagnosis string            `json:"diagnosis"`
		Context   prompting.Context `json:"context"`
	}
	if !decode(w, r, &req) {
		return
	}

	if req.Diagnosis == "" {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "diagnosis is required"})
		return
	}

	jsonResponse(w, http.StatusOK, s.Engine.GenerateTreatmentRecommendation(req.Diagnosis, req.Context))
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	registry := s.Engine.Prompts.Generator().Registry
	jsonResponse(w, http.StatusOK, TemplatesResponse{
		Categories: registry.Categories(),
		Templates:  registry.Templates(),
	})
}

func (s *Server) handleContext(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPatch:
		var fields prompting.Context
		if !decode(w, r, &fields) {
			return
		}
		s.Engine.Prompts.UpdateContext(fields)
		s.Logger.WithField("fields", len(fields)).Info("Patient context updated")
	case http.MethodDelete:
		s.Engine.Prompts.ResetContext()
		s.Logger.Info("Patient context reset")
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jsonResponse(w, http.StatusOK, ContextResponse{Context: s.Engine.Prompts.CurrentContext()})
}

func (s *Server) handleShots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		name = shots.KlinikAI.Name
	}

	shot, ok := shots.Lookup(name)
	if !ok {
		jsonResponse(w, http.StatusNotFound, ErrorResponse{Error: "unknown prompt set: " + name})
		return
	}

	jsonResponse(w, http.StatusOK, ShotResponse{
		Name:   shot.Name,
		Prompt: shot.Render(),
		Names:  shots.Names(),
	})
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Mode   engine.Mode `json:"mode"`
		Prompt string      `json:"prompt"`
		Shot   string      `json:"shot"`
	}
	if !decode(w, r, &req) {
		return
	}

	switch req.Mode {
	case "":
		req.Mode = engine.ZeroShot
	case engine.ZeroShot, engine.Dynamic:
	case engine.MultiShot:
		// An empty multi-shot prompt sends the named built-in set
		if req.Prompt == "" {
			name := req.Shot
			if name == "" {
				name = shots.KlinikAI.Name
			}
			shot, ok := shots.Lookup(name)
			if !ok {
				jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "unknown prompt set: " + name})
				return
			}
			req.Prompt = shot.Render()
		}
	default:
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "unknown mode: " + string(req.Mode)})
		return
	}

	result, err := s.Engine.Send(r.Context(), req.Mode, req.Prompt)
	if err != nil {
		jsonResponse(w, statusFor(err), ErrorResponse{Error: err.Error()})
		return
	}

	jsonResponse(w, http.StatusOK, result)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			APIKey      *string  `json:"api_key"`
			Model       *string  `json:"model"`
			Temperature *float64 `json:"temperature"`
			MaxTokens   *int     `json:"max_tokens"`
		}
		if !decode(w, r, &req) {
			return
		}

		_, err := s.Engine.UpdateSettings(engine.SettingsUpdate{
			APIKey:      req.APIKey,
			Model:       req.Model,
			Temperature: req.Temperature,
			MaxTokens:   req.MaxTokens,
		})
		if err != nil {
			jsonResponse(w, statusFor(err), ErrorResponse{Error: err.Error()})
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jsonResponse(w, http.StatusOK, s.settingsView())
}

func (s *Server) settingsView() SettingsView {
	settings := s.Engine.Settings()
	return SettingsView{
		Provider:    s.Engine.LLM.Name(),
		Model:       settings.Model,
		Temperature: settings.Temperature,
		MaxTokens:   settings.MaxTokens,
		APIKeySet:   settings.APIKey != "",
	}
}

func (s *Server) handleUsage(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodDelete:
		if err := s.Engine.ResetUsage(); err != nil {
			jsonResponse(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	jsonResponse(w, http.StatusOK, UsageResponse{
		Stats:   s.Engine.UsageStats(),
		Pricing: s.Engine.Usage.Pricing(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, http.StatusOK, StatusResponse{
		Provider: s.Engine.LLM.Name(),
		Model:    s.Engine.Settings().Model,
		Requests: s.Engine.UsageStats().Requests,
		Throttle: s.Engine.Throttle.GetStats(),
		Uptime:   time.Since(s.Engine.Stats.StartTime).Round(time.Second).String(),
	})
}

// statusFor maps caller mistakes to 400 and upstream failures to 502
func statusFor(err error) int {
	var statusErr *provider.StatusError
	switch {
	case errors.Is(err, engine.ErrEmptyPrompt),
		errors.Is(err, engine.ErrInvalidTemperature),
		errors.Is(err, engine.ErrInvalidMaxTokens),
		errors.Is(err, provider.ErrMissingAPIKey):
		return http.StatusBadRequest
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonResponse(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON"})
		return false
	}
	return true
}

func jsonResponse(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
