package v1

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/bokpilot/bokpilot/store"
)

// CreateMemoryRequest adds one fact to the memory store.
type CreateMemoryRequest struct {
	UserID     int32   `json:"user_id"`
	CompanyID  string  `json:"company_id"`
	Tier       string  `json:"tier"`
	Content    string  `json:"content"`
	Importance float64 `json:"importance"`
	Confidence float64 `json:"confidence"`
	ExpiresAt  *string `json:"expires_at,omitempty"` // RFC 3339
}

// ListMemories returns memories for a user/company scope, newest first.
func (s *APIV1Service) ListMemories(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := queryUserID(c)
	if err != nil {
		return err
	}
	companyID := c.QueryParam("company_id")
	if companyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	find := &store.FindMemoryRecord{UserID: &userID, CompanyID: &companyID}
	if tierParam := c.QueryParam("tier"); tierParam != "" {
		tier := store.MemoryTier(tierParam)
		if !tier.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown tier")
		}
		find.Tier = &tier
	}

	records, err := s.Store.MemoryRecords().ListMemoryRecords(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list memories")
	}
	return c.JSON(http.StatusOK, records)
}

// CreateMemory stores one fact.
func (s *APIV1Service) CreateMemory(c echo.Context) error {
	ctx := c.Request().Context()

	var req CreateMemoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if req.UserID <= 0 || req.CompanyID == "" || req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user_id, company_id and content are required")
	}
	tier := store.MemoryTier(req.Tier)
	if !tier.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown tier")
	}

	record := &store.MemoryRecord{
		ID:         uuid.NewString(),
		UserID:     req.UserID,
		CompanyID:  req.CompanyID,
		Tier:       tier,
		Content:    req.Content,
		Importance: req.Importance,
		Confidence: req.Confidence,
	}
	if req.ExpiresAt != nil {
		expiresAt, err := time.Parse(time.RFC3339, *req.ExpiresAt)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "expires_at must be RFC 3339")
		}
		record.ExpiresAt = &expiresAt
	}

	created, err := s.Store.MemoryRecords().CreateMemoryRecord(ctx, record)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create memory")
	}
	return c.JSON(http.StatusCreated, created)
}

// DeleteMemory removes one memory by id.
func (s *APIV1Service) DeleteMemory(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "id is required")
	}
	if err := s.Store.MemoryRecords().DeleteMemoryRecord(ctx, id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete memory")
	}
	return c.NoContent(http.StatusNoContent)
}

func queryUserID(c echo.Context) (int32, error) {
	raw := c.QueryParam("user_id")
	if raw == "" {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "user_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "user_id must be a positive integer")
	}
	return int32(id), nil
}
