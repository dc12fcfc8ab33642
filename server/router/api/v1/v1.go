// Package v1 implements the JSON API: chat turns, plan decisions, memory
// management and the audit trail.
package v1

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/bokpilot/bokpilot/ai/intent"
	"github.com/bokpilot/bokpilot/ai/llm"
	"github.com/bokpilot/bokpilot/ai/memory"
	"github.com/bokpilot/bokpilot/ai/plan"
	"github.com/bokpilot/bokpilot/fortnox"
	"github.com/bokpilot/bokpilot/internal/profile"
	"github.com/bokpilot/bokpilot/store"
)

// APIV1Service carries the domain services behind the v1 routes.
type APIV1Service struct {
	Profile *profile.Profile
	Store   *store.Store

	Memory *memory.Service
	Intent *intent.Classifier
	Engine *plan.Engine

	// LLM is nil when no API key is configured; chat returns 503 then,
	// plan decisions keep working.
	LLM llm.Service
}

// NewAPIV1Service assembles the domain services from the profile and store.
func NewAPIV1Service(p *profile.Profile, st *store.Store) (*APIV1Service, error) {
	service := &APIV1Service{
		Profile: p,
		Store:   st,
		Memory:  memory.NewService(st.MemoryRecords()),
		Intent:  intent.NewClassifier(),
	}

	engine := plan.NewEngine(st.ActionPlans(), st.AuditLogs())
	client := fortnox.NewClient(fortnox.Config{
		BaseURL:     p.PlatformBaseURL,
		AccessToken: p.PlatformAccessToken,
		Timeout:     p.PlatformTimeout,
		RateLimit:   p.PlatformRateLimit,
	})
	for _, h := range fortnox.Handlers(client, p.CompanyName, p.CompanyOrgNumber) {
		engine.RegisterHandler(h)
	}
	service.Engine = engine

	if p.IsAIEnabled() {
		llmService, err := llm.NewService(&llm.Config{
			Provider: p.LLMProvider,
			Model:    p.LLMModel,
			APIKey:   p.LLMAPIKey,
			BaseURL:  p.LLMBaseURL,
			Timeout:  p.LLMTimeout,
		})
		if err != nil {
			slog.Warn("failed to initialize LLM service, chat disabled",
				"provider", p.LLMProvider,
				"error", err,
			)
		} else {
			slog.Info("LLM service initialized", "provider", p.LLMProvider, "model", p.LLMModel)
			service.LLM = llmService
		}
	}

	return service, nil
}

// Register attaches the v1 routes.
func (s *APIV1Service) Register(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/chat", s.Chat)
	g.POST("/plans/:messageID/decision", s.SubmitPlanDecision)
	g.GET("/plans/:messageID", s.GetPlan)

	g.GET("/memories", s.ListMemories)
	g.POST("/memories", s.CreateMemory)
	g.DELETE("/memories/:id", s.DeleteMemory)

	g.GET("/audit", s.ListAuditLogs)
}
