package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trade-journal/internal/middleware"
	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/report"
	"github.com/trade-journal/internal/service"
	"github.com/trade-journal/pkg/response"
)

// holdingsReader is the part of the report service the account view needs
type holdingsReader interface {
	Summary(ctx context.Context, userID uint, holdingOnly bool) ([]report.SummaryRow, error)
}

// AuthHandler serves registration, login and the journal owner's account
type AuthHandler struct {
	auth     *service.AuthService
	holdings holdingsReader
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(auth *service.AuthService, holdings holdingsReader) *AuthHandler {
	return &AuthHandler{auth: auth, holdings: holdings}
}

// accountView is a journal owner as the API shows it
type accountView struct {
	ID            uint      `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	CreatedAt     time.Time `json:"created_at"`
	Holdings      int       `json:"holdings"`
	OpenPositions int       `json:"open_positions"`
}

// registration is the register reply: the new account plus a token so the
// client can start journaling without a separate login
type registration struct {
	Account accountView            `json:"account"`
	Token   *service.TokenResponse `json:"token"`
}

func newAccountView(user *models.User) accountView {
	return accountView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
}

// Register handles user registration
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req service.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	user, err := h.auth.Register(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	token, err := h.auth.IssueToken(user)
	if err != nil {
		writeError(c, err)
		return
	}

	response.Created(c, registration{Account: newAccountView(user), Token: token})
}

// Login handles user login by username or email
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.auth.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, token)
}

// RefreshToken handles token refresh
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	token, err := h.auth.RefreshToken(c.Request.Context(), req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, token)
}

// Me returns the caller's account with the number of codes still held
// GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	ctx := c.Request.Context()
	userID := middleware.GetUserID(c)

	user, err := h.auth.GetUserByID(ctx, userID)
	if err != nil {
		writeError(c, err)
		return
	}
	rows, err := h.holdings.Summary(ctx, userID, true)
	if err != nil {
		writeError(c, err)
		return
	}

	view := newAccountView(user)
	view.Holdings = len(rows)
	for _, row := range rows {
		view.OpenPositions += row.OpenPositions
	}
	response.Success(c, view)
}

// RegisterRoutes registers auth routes; only /me needs a token
func (h *AuthHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)
		auth.POST("/refresh", h.RefreshToken)
		auth.GET("/me", authMiddleware, h.Me)
	}
}
