package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"

	"github.com/bokpilot/bokpilot/ai/contextbuild"
	"github.com/bokpilot/bokpilot/ai/llm"
	"github.com/bokpilot/bokpilot/ai/memory"
	"github.com/bokpilot/bokpilot/ai/plan"
	"github.com/bokpilot/bokpilot/store"
)

// systemPrompt frames the assistant for the model. Memory context is
// injected as a second system message per turn.
const systemPrompt = `You are a bookkeeping assistant for Swedish small businesses.
You answer questions about the user's books and propose bookkeeping operations.
Never execute anything yourself: when the user asks for a write (invoice,
supplier invoice, journal entry, SIE export), call the propose_action_plan
tool so the user can review and approve the plan first.
Follow BAS-2025 accounts and Swedish VAT rates (25%, 12%, 6%, 0%).
Amounts are in SEK.`

// ChatRequest is one user turn.
type ChatRequest struct {
	UserID    int32  `json:"user_id"`
	CompanyID string `json:"company_id"`
	Message   string `json:"message"`
}

// ChatResponse is the assistant's reply plus the transparency block and,
// when the model proposed writes, the pending plan awaiting a decision.
type ChatResponse struct {
	MessageID    string                 `json:"message_id"`
	Reply        string                 `json:"reply"`
	MemoriesUsed []memory.SelectionInfo `json:"memories_used,omitempty"`
	Plan         *plan.ActionPlan       `json:"plan,omitempty"`
}

// Chat handles one conversational turn: select memories, call the model
// with the proposal tool, persist any proposed plan as pending.
func (s *APIV1Service) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.UserID <= 0 || req.CompanyID == "" || req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id, company_id and message are required")
	}
	if s.LLM == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "chat model is not configured")
	}

	// Memory selection degrades to an empty context. A broken memory store
	// must not take chat down with it.
	selection, err := s.Memory.SelectForQuery(ctx, req.UserID, req.CompanyID, req.Message)
	if err != nil {
		slog.Warn("memory selection failed, continuing without context",
			"company_id", req.CompanyID,
			"error", err,
		)
		selection = &memory.Selection{}
	}

	messages := []llm.Message{llm.SystemPrompt(systemPrompt)}
	if segment := contextbuild.Render(selection); segment != "" {
		messages = append(messages, llm.SystemPrompt(segment))
	}
	messages = append(messages, llm.UserMessage(req.Message))

	// The proposal tool is only offered when the message reads like a
	// write request, which keeps plain questions cheap and tool-free.
	var tools []llm.ToolDescriptor
	if s.Intent.IsActionIntent(req.Message) {
		tools = append(tools, llm.ProposeActionPlanDescriptor)
	}

	resp, err := s.LLM.ChatWithTools(ctx, messages, tools)
	if err != nil {
		slog.Error("chat completion failed", "error", err)
		return echo.NewHTTPError(http.StatusBadGateway, "chat model unavailable")
	}

	messageID := "msg_" + shortuuid.New()
	out := &ChatResponse{
		MessageID:    messageID,
		Reply:        resp.Content,
		MemoriesUsed: selection.Info,
	}

	proposal, err := llm.ExtractProposal(resp)
	if err != nil {
		slog.Warn("discarding malformed plan proposal", "message_id", messageID, "error", err)
	}
	if proposal != nil && err == nil {
		built, err := plan.Build(proposal)
		if err != nil {
			slog.Warn("discarding invalid plan proposal", "message_id", messageID, "error", err)
		} else {
			payload, err := built.Marshal()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to serialize plan")
			}
			record := &store.ActionPlanRecord{
				MessageID: messageID,
				PlanID:    built.PlanID,
				UserID:    req.UserID,
				CompanyID: req.CompanyID,
				Status:    store.PlanStatusPending,
				Payload:   payload,
			}
			if _, err := s.Store.ActionPlans().CreateActionPlan(ctx, record); err != nil {
				slog.Error("failed to persist plan", "plan_id", built.PlanID, "error", err)
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to persist plan")
			}
			out.Plan = built
		}
	}

	return c.JSON(http.StatusOK, out)
}
