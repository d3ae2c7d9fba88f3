package server

import "github.com/gin-gonic/gin"

// NewRouter builds the API router.
//
// Endpoints:
//
//	POST /api/report                          : receive one agent report
//	GET  /api/reports/latest                  : latest resolved state per machine
//	GET  /api/reports/history/:computerName   : report history (?days=7)
//	GET  /api/statistics                      : fleet statistics
//	GET  /api/alerts                          : derived alerts, most severe first
//	POST /api/cleanup                         : purge old reports (?days=30)
//	GET  /api/user-mappings                   : list user mappings
//	PUT  /api/user-mappings/:computerName     : update display name
//	PUT  /api/archive-date/:computerName      : update archive date
//	GET  /api/health                          : liveness check
func NewRouter(h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID())

	api := router.Group("/api")
	{
		api.POST("/report", h.HandleIngest)
		api.GET("/reports/latest", h.HandleLatest)
		api.GET("/reports/history/:computerName", h.HandleHistory)
		api.GET("/statistics", h.HandleStatistics)
		api.GET("/alerts", h.HandleAlerts)
		api.POST("/cleanup", h.HandleCleanup)
		api.GET("/user-mappings", h.HandleListMappings)
		api.PUT("/user-mappings/:computerName", h.HandleUpdateDisplayName)
		api.PUT("/archive-date/:computerName", h.HandleUpdateArchiveDate)
		api.GET("/health", h.HandleHealth)
	}

	return router
}
