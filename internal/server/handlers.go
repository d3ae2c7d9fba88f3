package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pcmon/internal/model"
	"pcmon/internal/monitor"
)

// Default windows for the query-parameter driven endpoints.
const (
	defaultHistoryDays = 7
	defaultSweepDays   = 30
)

// Handlers contains the HTTP handlers for the monitoring API. They are a
// thin dispatch layer: input validation and response shaping here, all
// semantics in the monitor service.
type Handlers struct {
	svc    *monitor.Service
	logger monitor.Logger
}

// NewHandlers creates handlers over the given service.
func NewHandlers(svc *monitor.Service, logger monitor.Logger) *Handlers {
	return &Handlers{svc: svc, logger: logger}
}

// HandleIngest handles POST /api/report.
//
// Accepts one agent report as JSON. Rejects with 400 when the body is not
// JSON or a required field (computer_name, user_name, timestamp) is missing.
func (h *Handlers) HandleIngest(c *gin.Context) {
	var report model.Report
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: "invalid request body",
		})
		return
	}

	id, err := h.svc.Ingest(&report)
	if err != nil {
		if monitor.IsValidation(err) {
			c.JSON(http.StatusBadRequest, errorResponse{
				Status:  statusError,
				Message: err.Error(),
			})
			return
		}
		h.logger.Error("ingest failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, ingestResponse{
		Status:   statusSuccess,
		Message:  "report stored",
		ReportID: id,
	})
}

// HandleLatest handles GET /api/reports/latest: one resolved state per
// machine, newest timestamp first.
func (h *Handlers) HandleLatest(c *gin.Context) {
	states, err := h.svc.LatestStates()
	if err != nil {
		h.logger.Error("latest reports failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Status: statusSuccess,
		Data:   states,
		Count:  len(states),
	})
}

// HandleHistory handles GET /api/reports/history/:computerName?days=7.
func (h *Handlers) HandleHistory(c *gin.Context) {
	computerName := c.Param("computerName")
	days := queryDays(c, defaultHistoryDays)

	reports, err := h.svc.History(computerName, days)
	if err != nil {
		h.logger.Error("history failed", "request_id", requestID(c),
			"computer", computerName, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Status: statusSuccess,
		Data:   reports,
		Count:  len(reports),
	})
}

// HandleStatistics handles GET /api/statistics.
func (h *Handlers) HandleStatistics(c *gin.Context) {
	stats, err := h.svc.Statistics()
	if err != nil {
		h.logger.Error("statistics failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, dataResponse{
		Status: statusSuccess,
		Data:   stats,
	})
}

// HandleAlerts handles GET /api/alerts: current condition violations,
// most severe first, evaluated at call time.
func (h *Handlers) HandleAlerts(c *gin.Context) {
	alerts, err := h.svc.Alerts()
	if err != nil {
		h.logger.Error("alerts failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Status: statusSuccess,
		Data:   alerts,
		Count:  len(alerts),
	})
}

// HandleCleanup handles POST /api/cleanup?days=30. Deleted reports are
// unrecoverable.
func (h *Handlers) HandleCleanup(c *gin.Context) {
	days := queryDays(c, defaultSweepDays)

	deleted, err := h.svc.Sweep(days)
	if err != nil {
		h.logger.Error("cleanup failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, cleanupResponse{
		Status:       statusSuccess,
		Message:      strconv.FormatInt(deleted, 10) + " old reports deleted",
		DeletedCount: deleted,
	})
}

// HandleListMappings handles GET /api/user-mappings.
func (h *Handlers) HandleListMappings(c *gin.Context) {
	mappings, err := h.svc.Mappings()
	if err != nil {
		h.logger.Error("listing mappings failed", "request_id", requestID(c), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "server error",
		})
		return
	}

	c.JSON(http.StatusOK, listResponse{
		Status: statusSuccess,
		Data:   mappings,
		Count:  len(mappings),
	})
}

// HandleUpdateDisplayName handles PUT /api/user-mappings/:computerName.
// Body: {"windows_user": "...", "display_name": "..."}; display_name is
// required.
func (h *Handlers) HandleUpdateDisplayName(c *gin.Context) {
	computerName := c.Param("computerName")

	var req struct {
		WindowsUser string `json:"windows_user"`
		DisplayName string `json:"display_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DisplayName == "" {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: "display_name is required",
		})
		return
	}

	if err := h.svc.UpdateDisplayName(computerName, req.WindowsUser, req.DisplayName); err != nil {
		h.logger.Error("display name update failed", "request_id", requestID(c),
			"computer", computerName, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "update failed",
		})
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		Status:  statusSuccess,
		Message: "display name updated",
	})
}

// HandleUpdateArchiveDate handles PUT /api/archive-date/:computerName.
// Body: {"archive_date": "YYYY-MM-DD"}; the date must pass a strict parse
// before it reaches the store.
func (h *Handlers) HandleUpdateArchiveDate(c *gin.Context) {
	computerName := c.Param("computerName")

	var req struct {
		ArchiveDate string `json:"archive_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ArchiveDate == "" {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: "archive_date is required",
		})
		return
	}

	if _, ok := monitor.ParseDate(req.ArchiveDate); !ok {
		c.JSON(http.StatusBadRequest, errorResponse{
			Status:  statusError,
			Message: "invalid date format (want YYYY-MM-DD)",
		})
		return
	}

	if err := h.svc.UpdateArchiveDate(computerName, req.ArchiveDate); err != nil {
		h.logger.Error("archive date update failed", "request_id", requestID(c),
			"computer", computerName, "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{
			Status:  statusError,
			Message: "update failed",
		})
		return
	}

	c.JSON(http.StatusOK, messageResponse{
		Status:  statusSuccess,
		Message: "archive date updated",
	})
}

// HandleHealth handles GET /api/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{Status: "healthy"})
}

// queryDays reads a positive "days" query parameter, falling back to the
// default when absent or unparseable.
func queryDays(c *gin.Context, fallback int) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", strconv.Itoa(fallback)))
	if err != nil || days < 0 {
		return fallback
	}
	return days
}
