package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"schema-registry/internal/middleware"
	"schema-registry/internal/model"
	"schema-registry/internal/repository"
	"schema-registry/internal/service"
	"schema-registry/internal/utils"
	"schema-registry/pkg/response"
)

type RegistryController struct {
	service   service.SchemaRegistryService
	validator *validator.Validate
}

func NewRegistryController(service service.SchemaRegistryService) *RegistryController {
	return &RegistryController{
		service:   service,
		validator: validator.New(),
	}
}

type updateStatusRequest struct {
	Status      string `json:"status" validate:"required"`
	PerformedBy string `json:"performedBy,omitempty" validate:"omitempty,max=255"`
}

// CreateSchemaRequest godoc
// @Summary Submit a schema request
// @Description Validates a table schema definition against policy and, when no blocking violation exists, registers it for review
// @Tags schemas
// @Accept json
// @Produce json
// @Param request body service.CreateSchemaRequest true "Schema request"
// @Success 201 {object} response.StandardResponse{data=service.CreateSchemaResult}
// @Failure 400 {object} response.StandardResponse
// @Failure 409 {object} response.StandardResponse
// @Failure 422 {object} response.StandardResponse{data=service.CreateSchemaResult}
// @Router /api/v1/schemas/requests [post]
func (rc *RegistryController) CreateSchemaRequest(c *gin.Context) {
	var req service.CreateSchemaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("Invalid request body").WithDetails(err.Error()).Build())
		return
	}

	if err := rc.validator.Struct(&req); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("Request failed structural validation").WithDetails(err.Error()).Build())
		return
	}

	result, err := rc.service.CreateSchemaRequest(c.Request.Context(), &req)
	if err != nil {
		rc.handleError(c, err, "Failed to create schema request")
		return
	}

	if !result.Success {
		// Policy violations block creation; nothing was persisted. The full
		// violation list rides back so the caller can correct and resubmit.
		c.JSON(http.StatusUnprocessableEntity, &response.StandardResponse{
			Success: false,
			Data:    result,
			Error: &response.ErrorInfo{
				Code:    utils.ErrCodePolicyViolation,
				Message: "Schema definition violates policy",
			},
			CorrelationID: middleware.GetCorrelationID(c),
			Timestamp:     time.Now(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.SuccessResponse(result, middleware.GetCorrelationID(c)))
}

// ValidateSchemaDefinition godoc
// @Summary Dry-run policy validation
// @Description Runs the policy rule set against a definition without persisting anything
// @Tags schemas
// @Accept json
// @Produce json
// @Param definition body model.TableSchemaDefinition true "Table schema definition"
// @Success 200 {object} response.StandardResponse{data=policy.ValidationResult}
// @Failure 400 {object} response.StandardResponse
// @Router /api/v1/schemas/validate [post]
func (rc *RegistryController) ValidateSchemaDefinition(c *gin.Context) {
	var def model.TableSchemaDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("Invalid request body").WithDetails(err.Error()).Build())
		return
	}

	if err := rc.validator.Struct(&def); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("Definition failed structural validation").WithDetails(err.Error()).Build())
		return
	}

	result, err := rc.service.ValidateSchemaDefinition(c.Request.Context(), def)
	if err != nil {
		rc.handleError(c, err, "Failed to validate schema definition")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(result, middleware.GetCorrelationID(c)))
}

// ListSchemaRequests godoc
// @Summary List schema requests
// @Description Retrieves a paginated list of schema requests with optional status filtering
// @Tags schemas
// @Produce json
// @Param status query string false "Filter by lifecycle status"
// @Param limit query int false "Maximum number of items to return (default: 20, max: 100)"
// @Param offset query int false "Number of items to skip (default: 0)"
// @Success 200 {object} response.StandardResponse{data=service.ListSchemaRequestsResponse}
// @Router /api/v1/schemas/requests [get]
func (rc *RegistryController) ListSchemaRequests(c *gin.Context) {
	req := &service.ListSchemaRequestsRequest{}

	if statusStr := c.Query("status"); statusStr != "" {
		req.Status = model.RequestStatus(statusStr)
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			req.Limit = limit
		}
	}
	if offsetStr := c.Query("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			req.Offset = offset
		}
	}

	if err := rc.validator.Struct(req); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidParameters).
			WithDetails(err.Error()).Build())
		return
	}

	resp, err := rc.service.ListSchemaRequests(c.Request.Context(), req)
	if err != nil {
		rc.handleError(c, err, "Failed to list schema requests")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(resp, middleware.GetCorrelationID(c)))
}

// GetSchemaRequest godoc
// @Summary Get a schema request by ID
// @Tags schemas
// @Produce json
// @Param id path string true "Schema request UUID"
// @Success 200 {object} response.StandardResponse{data=model.SchemaRegistry}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id} [get]
func (rc *RegistryController) GetSchemaRequest(c *gin.Context) {
	record, err := rc.service.GetSchemaRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		rc.handleError(c, err, "Failed to get schema request")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(record, middleware.GetCorrelationID(c)))
}

// GetSchemaRequestByTableName godoc
// @Summary Get a schema request by governed table name
// @Tags schemas
// @Produce json
// @Param tableName path string true "Governed table name"
// @Success 200 {object} response.StandardResponse{data=model.SchemaRegistry}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/by-table/{tableName} [get]
func (rc *RegistryController) GetSchemaRequestByTableName(c *gin.Context) {
	record, err := rc.service.GetSchemaRequestByTableName(c.Request.Context(), c.Param("tableName"))
	if err != nil {
		rc.handleError(c, err, "Failed to get schema request")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(record, middleware.GetCorrelationID(c)))
}

// UpdateSchemaRequestStatus godoc
// @Summary Update the lifecycle status of a schema request
// @Description Sets any valid status on an existing request and appends the matching audit entry
// @Tags schemas
// @Accept json
// @Produce json
// @Param id path string true "Schema request UUID"
// @Param request body updateStatusRequest true "Status update"
// @Success 200 {object} response.StandardResponse
// @Failure 400 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id}/status [put]
func (rc *RegistryController) UpdateSchemaRequestStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithMessage("Invalid request body").WithDetails(err.Error()).Build())
		return
	}

	if err := rc.validator.Struct(&req); err != nil {
		rc.sendAppError(c, utils.NewErrorBuilder(utils.ErrCodeInvalidRequest).
			WithDetails(err.Error()).Build())
		return
	}

	rc.changeStatus(c, model.RequestStatus(req.Status), req.PerformedBy)
}

// ApproveSchemaRequest godoc
// @Summary Approve a schema request
// @Tags schemas
// @Produce json
// @Param id path string true "Schema request UUID"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id}/approve [post]
func (rc *RegistryController) ApproveSchemaRequest(c *gin.Context) {
	rc.changeStatus(c, model.RequestStatusApproved, "")
}

// RejectSchemaRequest godoc
// @Summary Reject a schema request
// @Tags schemas
// @Produce json
// @Param id path string true "Schema request UUID"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id}/reject [post]
func (rc *RegistryController) RejectSchemaRequest(c *gin.Context) {
	rc.changeStatus(c, model.RequestStatusRejected, "")
}

// MarkSchemaRequestMigrated godoc
// @Summary Mark a schema request as migrated
// @Tags schemas
// @Produce json
// @Param id path string true "Schema request UUID"
// @Success 200 {object} response.StandardResponse
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id}/migrate [post]
func (rc *RegistryController) MarkSchemaRequestMigrated(c *gin.Context) {
	rc.changeStatus(c, model.RequestStatusMigrated, "")
}

// GenerateMigrationPreview godoc
// @Summary Preview the migration for a schema request
// @Description Renders the formatted up/down migration files for the stored definition; read-only, no state change
// @Tags schemas
// @Produce json
// @Param id path string true "Schema request UUID"
// @Success 200 {object} response.StandardResponse{data=service.MigrationPreview}
// @Failure 404 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id}/migration [get]
func (rc *RegistryController) GenerateMigrationPreview(c *gin.Context) {
	preview, err := rc.service.GenerateMigrationPreview(c.Request.Context(), c.Param("id"))
	if err != nil {
		rc.handleError(c, err, "Failed to generate migration preview")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(preview, middleware.GetCorrelationID(c)))
}

// ExportMigrationArtifacts godoc
// @Summary Export the migration files for a schema request
// @Description Uploads the formatted up/down migration files to the configured object store
// @Tags schemas
// @Produce json
// @Param id path string true "Schema request UUID"
// @Success 200 {object} response.StandardResponse{data=service.ArtifactExport}
// @Failure 404 {object} response.StandardResponse
// @Failure 503 {object} response.StandardResponse
// @Router /api/v1/schemas/requests/{id}/export [post]
func (rc *RegistryController) ExportMigrationArtifacts(c *gin.Context) {
	export, err := rc.service.ExportMigrationArtifacts(c.Request.Context(), c.Param("id"))
	if err != nil {
		rc.handleError(c, err, "Failed to export migration artifacts")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(export, middleware.GetCorrelationID(c)))
}

// GetRegistryStats godoc
// @Summary Get registry statistics
// @Tags schemas
// @Produce json
// @Success 200 {object} response.StandardResponse{data=service.RegistryStatsResponse}
// @Router /api/v1/schemas/requests/stats [get]
func (rc *RegistryController) GetRegistryStats(c *gin.Context) {
	stats, err := rc.service.GetRegistryStats(c.Request.Context())
	if err != nil {
		rc.handleError(c, err, "Failed to get registry statistics")
		return
	}

	c.JSON(http.StatusOK, response.SuccessResponse(stats, middleware.GetCorrelationID(c)))
}

// Helper methods

// changeStatus applies a status transition; performedBy falls back to the
// authenticated subject when the caller did not name one.
func (rc *RegistryController) changeStatus(c *gin.Context, status model.RequestStatus, performedBy string) {
	if performedBy == "" {
		performedBy = c.GetString("user_id")
	}

	if err := rc.service.UpdateSchemaRequestStatus(c.Request.Context(), c.Param("id"), status, performedBy); err != nil {
		rc.handleError(c, err, "Failed to update schema request status")
		return
	}

	c.JSON(http.StatusOK, response.SuccessMessageResponse(
		"Schema request status updated to "+string(status),
		middleware.GetCorrelationID(c),
	))
}

// handleError maps repository sentinels and AppErrors onto HTTP statuses;
// anything else is a storage-class failure reported generically.
func (rc *RegistryController) handleError(c *gin.Context, err error, fallback string) {
	correlationID := middleware.GetCorrelationID(c)

	var appErr *utils.AppError
	switch {
	case errors.Is(err, repository.ErrSchemaRequestNotFound):
		c.JSON(http.StatusNotFound, response.ErrorResponse(
			utils.ErrCodeSchemaRequestNotFound, "Schema request not found", "", correlationID))
	case errors.Is(err, repository.ErrSchemaRequestExists):
		c.JSON(http.StatusConflict, response.ErrorResponse(
			utils.ErrCodeSchemaRequestExists, "A schema request already exists for this table", "", correlationID))
	case errors.Is(err, repository.ErrInvalidUUID):
		c.JSON(http.StatusBadRequest, response.ErrorResponse(
			utils.ErrCodeInvalidUUID, "Invalid schema request ID format", "", correlationID))
	case errors.Is(err, repository.ErrInvalidRequestStatus):
		c.JSON(http.StatusBadRequest, response.ErrorResponse(
			utils.ErrCodeInvalidStatus, "Invalid request status", "", correlationID))
	case errors.As(err, &appErr):
		rc.sendAppError(c, appErr)
	default:
		c.JSON(http.StatusInternalServerError, response.ErrorResponse(
			utils.ErrCodeDatabaseError, fallback, "", correlationID))
	}
}

func (rc *RegistryController) sendAppError(c *gin.Context, appErr *utils.AppError) {
	c.JSON(utils.GetErrorStatus(appErr), response.ErrorResponseFromAppError(appErr, middleware.GetCorrelationID(c)))
}
