package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error codes carried in the envelope next to the HTTP status
const (
	CodeOK            = 0
	CodeBadRequest    = -1
	CodeInternal      = -2
	CodeUnauthorized  = -1001
	CodeForbidden     = -1002
	CodeNotFound      = -1003
	CodeAccountTaken  = -1004
	CodeValidation    = -2001
	CodePositionLimit = -2002
)

// Response is the standard API response structure
type Response struct {
	Code      int         `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
}

func write(c *gin.Context, status, code int, message string, data interface{}) {
	c.JSON(status, Response{
		Code:      code,
		Message:   message,
		Data:      data,
		RequestID: c.GetString("request_id"),
	})
}

// Success sends a successful response
func Success(c *gin.Context, data interface{}) {
	write(c, http.StatusOK, CodeOK, "success", data)
}

// Created sends a 201 created response
func Created(c *gin.Context, data interface{}) {
	write(c, http.StatusCreated, CodeOK, "created", data)
}

// Error sends an error response
func Error(c *gin.Context, statusCode int, code int, message string) {
	write(c, statusCode, code, message, nil)
}

// ErrorWithData sends an error response whose data explains the failure
func ErrorWithData(c *gin.Context, statusCode int, code int, message string, data interface{}) {
	write(c, statusCode, code, message, data)
}

// BadRequest sends a 400 error response
func BadRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, CodeBadRequest, message)
}

// Unauthorized sends a 401 error response
func Unauthorized(c *gin.Context, message string) {
	Error(c, http.StatusUnauthorized, CodeUnauthorized, message)
}

// NotFound sends a 404 error response
func NotFound(c *gin.Context, message string) {
	Error(c, http.StatusNotFound, CodeNotFound, message)
}

// InternalError sends a 500 error response
func InternalError(c *gin.Context, message string) {
	Error(c, http.StatusInternalServerError, CodeInternal, message)
}

// Paginated is the paginated response structure
type Paginated struct {
	Items      interface{} `json:"items"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
	TotalPages int         `json:"total_pages"`
}

// SuccessPaginated sends a successful paginated response
func SuccessPaginated(c *gin.Context, items interface{}, total int64, page, pageSize int) {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(total) / pageSize
		if int(total)%pageSize > 0 {
			totalPages++
		}
	}

	Success(c, Paginated{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}
