package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trade-journal/internal/middleware"
	"github.com/trade-journal/internal/service"
	"github.com/trade-journal/pkg/response"
)

// JournalHandler handles trade record API requests
type JournalHandler struct {
	journal *service.JournalService
}

// NewJournalHandler creates a new JournalHandler
func NewJournalHandler(journal *service.JournalService) *JournalHandler {
	return &JournalHandler{journal: journal}
}

// History lists position trees, newest first
// GET /api/v1/trades?id=&q=&page=
func (h *JournalHandler) History(c *gin.Context) {
	filter := service.HistoryFilter{
		Query: c.Query("q"),
		Page:  pageQuery(c),
	}
	if raw := c.Query("id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.BadRequest(c, "invalid id")
			return
		}
		filter.ID = uint(id)
	}

	page, err := h.journal.History(c.Request.Context(), middleware.GetUserID(c), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	response.SuccessPaginated(c, presentNodes(page.Nodes), page.Total, page.Page, page.PageSize)
}

// Create records a new trade
// POST /api/v1/trades
func (h *JournalHandler) Create(c *gin.Context) {
	var in service.TradeInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.journal.CreateTrade(c.Request.Context(), middleware.GetUserID(c), in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, result)
}

// Get returns one trade
// GET /api/v1/trades/:id
func (h *JournalHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	trade, err := h.journal.GetTrade(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trade)
}

// Update replaces a trade
// PUT /api/v1/trades/:id
func (h *JournalHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var in service.TradeInput
	if err := c.ShouldBind(&in); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	trade, err := h.journal.UpdateTrade(c.Request.Context(), middleware.GetUserID(c), id, in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, trade)
}

// Delete removes a trade, and its follow-ons when it is a root
// DELETE /api/v1/trades/:id
func (h *JournalHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	deleted, err := h.journal.DeleteTrade(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}

// Remaining returns the open quantity of the chain containing a trade
// GET /api/v1/trades/:id/remaining
func (h *JournalHandler) Remaining(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}

	remaining, err := h.journal.Remaining(c.Request.Context(), middleware.GetUserID(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"remaining": remaining})
}

// RegisterRoutes registers trade routes
func (h *JournalHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	trades := rg.Group("/trades")
	trades.Use(authMiddleware)
	{
		trades.GET("", h.History)
		trades.POST("", h.Create)
		trades.GET("/:id", h.Get)
		trades.PUT("/:id", h.Update)
		trades.DELETE("/:id", h.Delete)
		trades.GET("/:id/remaining", h.Remaining)
	}
}
