package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"schema-registry/internal/middleware"
	"schema-registry/internal/service"
	"schema-registry/internal/utils"
	"schema-registry/pkg/response"
)

type AuditController struct {
	service service.SchemaRegistryService
}

func NewAuditController(service service.SchemaRegistryService) *AuditController {
	return &AuditController{service: service}
}

// GetAuditHistory godoc
// @Summary Get the audit trail for a table
// @Description Returns every audit entry recorded for the table, most recent first. The trail is the authoritative history even after the registry record is purged.
// @Tags audit
// @Produce json
// @Param tableName path string true "Governed table name"
// @Success 200 {object} response.StandardResponse{data=[]model.SchemaAudit}
// @Failure 400 {object} response.StandardResponse
// @Router /api/v1/audit/{tableName} [get]
func (ac *AuditController) GetAuditHistory(c *gin.Context) {
	tableName := c.Param("tableName")
	correlationID := middleware.GetCorrelationID(c)

	entries, err := ac.service.GetAuditHistory(c.Request.Context(), tableName)
	if err != nil {
		if appErr, ok := err.(*utils.AppError); ok {
			c.JSON(utils.GetErrorStatus(appErr), response.ErrorResponseFromAppError(appErr, correlationID))
			return
		}
		c.JSON(http.StatusInternalServerError, response.ErrorResponse(
			utils.ErrCodeDatabaseError, "Failed to get audit history", "", correlationID))
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(entries, correlationID))
}
