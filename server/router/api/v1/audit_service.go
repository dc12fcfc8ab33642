package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/bokpilot/bokpilot/store"
)

const maxAuditPageSize = 200

// ListAuditLogs returns the audit trail for a user/company scope, newest
// first. The trail is append-only; there is no write surface here.
func (s *APIV1Service) ListAuditLogs(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := queryUserID(c)
	if err != nil {
		return err
	}
	companyID := c.QueryParam("company_id")
	if companyID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company_id is required")
	}

	find := &store.FindAuditLog{UserID: &userID, CompanyID: &companyID}
	if resourceType := c.QueryParam("resource_type"); resourceType != "" {
		find.ResourceType = &resourceType
	}
	if rawLimit := c.QueryParam("limit"); rawLimit != "" {
		limit, err := strconv.Atoi(rawLimit)
		if err != nil || limit <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		if limit > maxAuditPageSize {
			limit = maxAuditPageSize
		}
		find.Limit = limit
	}
	if rawOffset := c.QueryParam("offset"); rawOffset != "" {
		offset, err := strconv.Atoi(rawOffset)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "offset must be a non-negative integer")
		}
		find.Offset = offset
	}

	entries, err := s.Store.AuditLogs().ListAuditLogs(ctx, find)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list audit entries")
	}
	return c.JSON(http.StatusOK, entries)
}
