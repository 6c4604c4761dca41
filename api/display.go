package api

import (
	"net/http"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"

	"github.com/aouyang1/ratedisplay/api/web/templates"
)

func (ws *WebServer) handleGetDirective(c *gin.Context) {
	c.JSON(http.StatusOK, ws.runner.Engine().Directive())
}

func (ws *WebServer) handleTV(c *gin.Context) {
	ws.renderComponent(c, templates.DisplayPage(ws.runner.Engine().Directive()))
}

func (ws *WebServer) handleTVFrame(c *gin.Context) {
	ws.renderComponent(c, templates.DisplayFrame(ws.runner.Engine().Directive()))
}

func (ws *WebServer) renderComponent(c *gin.Context, component templ.Component) {
	c.Header("Cache-Control", "no-store")
	templ.Handler(component).ServeHTTP(c.Writer, c.Request)
}
