package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/erp/fulfillment-sync/internal/domain/fulfillment"
	"github.com/erp/fulfillment-sync/internal/domain/ordering"
	"github.com/erp/fulfillment-sync/internal/domain/shared"
	"github.com/erp/fulfillment-sync/internal/interfaces/http/dto"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponse(code, message))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// HandleError maps domain errors to HTTP responses
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	code := dto.ErrCodeInternal
	switch {
	case errors.Is(err, ordering.ErrOrderNotFound),
		errors.Is(err, fulfillment.ErrSyncRecordNotFound),
		errors.Is(err, fulfillment.ErrSyncConfigNotFound),
		errors.Is(err, fulfillment.ErrRemoteSkuNotFound):
		code = dto.ErrCodeNotFound
	case errors.Is(err, shared.ErrAlreadyRunning),
		errors.Is(err, fulfillment.ErrSyncRecordTerminal):
		code = dto.ErrCodeConflict
	case errors.Is(err, shared.ErrSyncDisabled):
		code = dto.ErrCodeSyncDisabled
	case errors.Is(err, fulfillment.ErrProviderUnavailable),
		errors.Is(err, fulfillment.ErrProviderRejected),
		errors.Is(err, fulfillment.ErrProviderAuthFailed),
		errors.Is(err, fulfillment.ErrProviderInvalidResponse):
		code = dto.ErrCodeUpstreamError
	}

	h.Error(c, dto.GetHTTPStatus(code), code, err.Error())
}
