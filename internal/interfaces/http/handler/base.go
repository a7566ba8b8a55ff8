package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsmatrix/governance/internal/domain/authority"
	"github.com/opsmatrix/governance/internal/domain/governance"
	"github.com/opsmatrix/governance/internal/domain/limits"
	"github.com/opsmatrix/governance/internal/domain/matrix"
	"github.com/opsmatrix/governance/internal/domain/shared"
	"github.com/opsmatrix/governance/internal/interfaces/http/dto"
	"github.com/opsmatrix/governance/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// currentPrincipal extracts the authenticated principal, aborting with 401
// when missing
func currentPrincipal(c *gin.Context) (authority.Principal, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized,
			dto.NewErrorResponse(dto.ErrCodeUnauthorized, "Authentication required"))
		return nil, false
	}
	return principal, true
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, dto.NewErrorResponse(dto.ErrCodeBadRequest, message))
}

// DomainError maps a domain error to its HTTP response
func (h *BaseHandler) DomainError(c *gin.Context, err error) {
	var blocked *governance.BlockedByRuleError
	var warning *governance.WarningError
	var approvalRequired *governance.ApprovalRequiredError
	var sod *governance.SegregationOfDutiesError
	var cfg *governance.ConfigurationError
	var denied *matrix.AccessDeniedError
	var exceeded *limits.LimitExceededError
	var domainErr *shared.DomainError

	switch {
	case errors.As(err, &blocked):
		h.respondError(c, dto.ErrCodeBlocked, blocked.Error())
	case errors.As(err, &warning):
		h.respondError(c, dto.ErrCodeWarning, warning.Error())
	case errors.As(err, &approvalRequired):
		c.JSON(dto.GetHTTPStatus(dto.ErrCodeApprovalRequired), dto.Response{
			Success: false,
			Error: &dto.ErrorInfo{
				Code:      dto.ErrCodeApprovalRequired,
				Message:   approvalRequired.Error(),
				Reference: approvalRequired.Reference,
			},
		})
	case errors.As(err, &sod):
		h.respondError(c, dto.ErrCodeSelfApproval, sod.Error())
	case errors.As(err, &cfg):
		h.respondError(c, dto.ErrCodeConfiguration, cfg.Error())
	case errors.As(err, &denied):
		h.respondError(c, dto.ErrCodeAccessDenied, denied.Error())
	case errors.As(err, &exceeded):
		h.respondError(c, dto.ErrCodeLimitExceeded, exceeded.Error())
	case errors.As(err, &domainErr):
		h.respondError(c, mapDomainCode(domainErr.Code), domainErr.Message)
	default:
		h.respondError(c, dto.ErrCodeInternal, "Internal server error")
	}
}

func (h *BaseHandler) respondError(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponse(code, message))
}

func mapDomainCode(code string) string {
	switch code {
	case "NOT_FOUND":
		return dto.ErrCodeNotFound
	case "ALREADY_EXISTS", "CONCURRENCY_CONFLICT":
		return dto.ErrCodeConflict
	case "UNAUTHORIZED":
		return dto.ErrCodeUnauthorized
	case "FORBIDDEN":
		return dto.ErrCodeForbidden
	case "INVALID_STATE":
		return dto.ErrCodeInvalidState
	case "SELF_APPROVAL":
		return dto.ErrCodeSelfApproval
	case "REASON_REQUIRED", "INVALID_INPUT", "BYPASS_REASON_REQUIRED":
		return dto.ErrCodeBadRequest
	default:
		return dto.ErrCodeBadRequest
	}
}
