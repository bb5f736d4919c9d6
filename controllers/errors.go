package controllers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	apperrors "github.com/ehson1111/chocoberry-bot/common/errors"
	"github.com/ehson1111/chocoberry-bot/common/logger"
	"github.com/ehson1111/chocoberry-bot/middleware"
	"github.com/ehson1111/chocoberry-bot/services"
	"github.com/gin-gonic/gin"
)

// toAppError maps domain failures onto HTTP responses.
func toAppError(err error) *apperrors.Error {
	var appErr *apperrors.Error
	var precondition *services.PreconditionError
	var invalid *services.InvalidChoiceError

	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.As(err, &precondition):
		return apperrors.NewKind(http.StatusConflict, string(precondition.Reason), precondition.Error(), err)
	case errors.As(err, &invalid):
		return apperrors.NewKind(http.StatusUnprocessableEntity, "invalid_choice", invalid.Error(), err)
	case errors.Is(err, services.ErrNoActiveSession):
		return apperrors.NewKind(http.StatusNotFound, "no_active_session", "No active checkout", err)
	case errors.Is(err, services.ErrProductNotFound):
		return apperrors.NewKind(http.StatusNotFound, "product_not_found", "Product not found", err)
	case errors.Is(err, services.ErrInvalidQuantity),
		errors.Is(err, services.ErrInvalidAmount),
		errors.Is(err, services.ErrInvalidUser):
		return apperrors.BadRequest(err.Error(), err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperrors.New(http.StatusServiceUnavailable, "Request timed out", err)
	}
	return apperrors.Internal(err)
}

// fail attaches err for ErrorMiddleware and logs server-side failures.
func fail(c *gin.Context, err error) {
	appErr := toAppError(err)
	if appErr.Code >= http.StatusInternalServerError {
		logger.Error(c.Request.Context(), "request failed", err)
	}
	_ = c.Error(appErr)
	c.Abort()
}

func userID(c *gin.Context) (int64, bool) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		_ = c.Error(apperrors.New(http.StatusUnauthorized, "unauthorized", err))
		c.Abort()
		return 0, false
	}
	return id, true
}

func productIDParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("product_id"), 10, 32)
	if err != nil || id == 0 {
		_ = c.Error(apperrors.BadRequest("Invalid product id", err))
		c.Abort()
		return 0, false
	}
	return uint(id), true
}
