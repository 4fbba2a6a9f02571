package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trade-journal/internal/repository"
	"github.com/trade-journal/internal/service"
	"github.com/trade-journal/pkg/response"
)

// writeError translates service errors into HTTP responses. Unexpected
// errors are attached to the context so the request logger records them.
func writeError(c *gin.Context, err error) {
	var (
		verr     *service.ValidationError
		limitErr *service.PositionLimitError
	)
	switch {
	case errors.As(err, &verr):
		response.ErrorWithData(c, http.StatusBadRequest, response.CodeValidation, verr.Error(), verr)
	case errors.As(err, &limitErr):
		response.ErrorWithData(c, http.StatusConflict, response.CodePositionLimit, limitErr.Error(), limitErr)
	case errors.Is(err, service.ErrUsernameTaken),
		errors.Is(err, service.ErrEmailTaken):
		response.Error(c, http.StatusConflict, response.CodeAccountTaken, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, repository.ErrUserNotFound):
		response.Unauthorized(c, "invalid credentials or token")
	case errors.Is(err, repository.ErrTradeNotFound):
		response.NotFound(c, "trade not found")
	case errors.Is(err, service.ErrParentNotFound),
		errors.Is(err, service.ErrParentNotRoot),
		errors.Is(err, service.ErrNameRequired):
		response.BadRequest(c, err.Error())
	default:
		_ = c.Error(err)
		response.InternalError(c, "internal error")
	}
}

// idParam parses the :id path parameter
func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid id")
		return 0, false
	}
	return uint(id), true
}

// pageQuery parses the page query parameter, defaulting to 1
func pageQuery(c *gin.Context) int {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
