package api

import "github.com/labstack/echo/v4"

/*
RegisterRoutes attach the vault endpoints to an echo instance

	@param e *echo.Echo - the echo instance
	@param h *Handlers - the vault handler set
*/
func RegisterRoutes(e *echo.Echo, h *Handlers) {
	e.GET("/healthz", h.Healthz)

	e.POST("/signup", h.Signup)
	e.POST("/login", h.Login)
	e.GET("/logout", h.Logout)

	authed := e.Group("", h.RequireSession)
	authed.POST("/upload", h.Upload)
	authed.GET("/download/:id", h.Download)
	authed.GET("/delete/:id", h.Delete)
	authed.GET("/mydocs", h.ListDocuments)
	authed.GET("/expiring", h.ListExpiring)
	authed.GET("/export_summary", h.ExportSummary)
}
