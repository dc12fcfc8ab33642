package v1

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bokpilot/bokpilot/ai/plan"
)

// PlanDecisionRequest is the body of a decision submission.
type PlanDecisionRequest struct {
	UserID    int32                     `json:"user_id"`
	CompanyID string                    `json:"company_id"`
	Decision  string                    `json:"decision"` // approved, modified, rejected
	Overrides map[string]map[string]any `json:"overrides,omitempty"`
}

// PlanDecisionResponse is the aggregate outcome returned to the client.
type PlanDecisionResponse struct {
	PlanID          string                 `json:"plan_id"`
	Status          string                 `json:"status"`
	SuccessCount    int                    `json:"success_count"`
	FailCount       int                    `json:"fail_count"`
	Summary         string                 `json:"summary"`
	Results         []plan.ExecutionResult `json:"results,omitempty"`
	AlreadyTerminal bool                   `json:"already_terminal,omitempty"`
}

// GetPlan returns the plan attached to a message.
func (s *APIV1Service) GetPlan(c echo.Context) error {
	ctx := c.Request().Context()
	messageID := c.Param("messageID")

	record, err := s.Store.ActionPlans().GetActionPlan(ctx, messageID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load plan")
	}
	if record == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no plan for this message")
	}

	p, err := plan.UnmarshalPlan(record.Payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "stored plan is unreadable")
	}
	return c.JSON(http.StatusOK, p)
}

// SubmitPlanDecision applies an approve/modify/reject decision. With
// "Accept: text/event-stream" the per-action progress is streamed as SSE
// and the outcome arrives as the final event; otherwise the call blocks
// and returns the outcome as JSON.
func (s *APIV1Service) SubmitPlanDecision(c echo.Context) error {
	ctx := c.Request().Context()
	messageID := c.Param("messageID")

	var body PlanDecisionRequest
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if body.UserID <= 0 || body.CompanyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id and company_id are required")
	}

	req := &plan.DecisionRequest{
		MessageID: messageID,
		UserID:    body.UserID,
		CompanyID: body.CompanyID,
		Decision:  plan.Decision(body.Decision),
		Overrides: body.Overrides,
	}

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), "text/event-stream") {
		return s.streamDecision(c, req)
	}

	outcome, err := s.Engine.SubmitDecision(ctx, req, nil)
	if err != nil {
		return decisionError(err)
	}
	return c.JSON(http.StatusOK, outcomeResponse(outcome))
}

// streamDecision runs the decision while relaying progress events over SSE.
// Events: "progress" per action transition, then one "outcome" or "error".
func (s *APIV1Service) streamDecision(c echo.Context, req *plan.DecisionRequest) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		w.Flush()
	}

	outcome, err := s.Engine.SubmitDecision(c.Request().Context(), req, func(event plan.ProgressEvent) {
		writeEvent("progress", event)
	})
	if err != nil {
		writeEvent("error", map[string]string{"message": err.Error()})
		return nil
	}
	writeEvent("outcome", outcomeResponse(outcome))
	return nil
}

func outcomeResponse(outcome *plan.Outcome) *PlanDecisionResponse {
	return &PlanDecisionResponse{
		PlanID:          outcome.PlanID,
		Status:          outcome.Status,
		SuccessCount:    outcome.SuccessCount,
		FailCount:       outcome.FailCount,
		Summary:         outcome.Summary,
		Results:         outcome.Results,
		AlreadyTerminal: outcome.AlreadyTerminal,
	}
}

// decisionError maps the engine's error taxonomy onto HTTP statuses.
// Infrastructure aborts leave the plan pending, so 502 invites a retry.
func decisionError(err error) *echo.HTTPError {
	switch {
	case plan.IsValidation(err):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case plan.IsNotFound(err):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case plan.IsInfrastructure(err):
		return echo.NewHTTPError(http.StatusBadGateway, "execution aborted, plan remains pending: "+err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
