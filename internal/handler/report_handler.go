package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trade-journal/internal/middleware"
	"github.com/trade-journal/internal/models"
	"github.com/trade-journal/internal/report"
	"github.com/trade-journal/internal/service"
	"github.com/trade-journal/pkg/response"
)

// ReportHandler handles report API requests
type ReportHandler struct {
	reports        *service.ReportService
	matrixPageSize int
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reports *service.ReportService, matrixPageSize int) *ReportHandler {
	return &ReportHandler{reports: reports, matrixPageSize: matrixPageSize}
}

// matrixQuery reads sort, from and to. Dates must be YYYY-MM-DD.
func matrixQuery(c *gin.Context) (report.MatrixQuery, bool) {
	q := report.MatrixQuery{
		Sort: report.ParseMatrixSort(c.Query("sort")),
		From: c.Query("from"),
		To:   c.Query("to"),
	}
	for _, date := range []string{q.From, q.To} {
		if date == "" {
			continue
		}
		if _, err := time.Parse(models.TradeDateLayout, date); err != nil {
			response.BadRequest(c, "dates must be YYYY-MM-DD")
			return q, false
		}
	}
	return q, true
}

// Matrix returns realized profit events
// GET /api/v1/reports/matrix?sort=&from=&to=&page=
func (h *ReportHandler) Matrix(c *gin.Context) {
	q, ok := matrixQuery(c)
	if !ok {
		return
	}

	rows, err := h.reports.Matrix(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		writeError(c, err)
		return
	}
	items, page := service.Paginate(rows, pageQuery(c), h.matrixPageSize)
	response.SuccessPaginated(c, presentMatrix(items), int64(len(rows)), page, h.matrixPageSize)
}

// Heatmap returns profit aggregated by entry and exit emotion
// GET /api/v1/reports/heatmap?from=&to=
func (h *ReportHandler) Heatmap(c *gin.Context) {
	q, ok := matrixQuery(c)
	if !ok {
		return
	}

	heatmap, err := h.reports.Heatmap(c.Request.Context(), middleware.GetUserID(c), q)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{
		"entry_labels": models.EntryEmotions,
		"exit_labels":  models.ExitEmotions,
		"heatmap":      heatmap.Rounded(models.PricePlaces),
	})
}

// Purposes returns holding period and win rate per purpose
// GET /api/v1/reports/purposes
func (h *ReportHandler) Purposes(c *gin.Context) {
	stats, err := h.reports.PurposeStats(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, stats)
}

// Summary returns net holdings per security and purpose
// GET /api/v1/reports/summary?all=true
func (h *ReportHandler) Summary(c *gin.Context) {
	holdingOnly := c.Query("all") != "true"

	rows, err := h.reports.Summary(c.Request.Context(), middleware.GetUserID(c), holdingOnly)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, presentSummary(rows))
}

// RegisterRoutes registers report routes
func (h *ReportHandler) RegisterRoutes(rg *gin.RouterGroup, authMiddleware gin.HandlerFunc) {
	reports := rg.Group("/reports")
	reports.Use(authMiddleware)
	{
		reports.GET("/matrix", h.Matrix)
		reports.GET("/heatmap", h.Heatmap)
		reports.GET("/purposes", h.Purposes)
		reports.GET("/summary", h.Summary)
	}
}
