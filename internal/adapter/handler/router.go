package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Anvita004/transcriptpro/pkg/config"
	"github.com/Anvita004/transcriptpro/pkg/middleware"
	"github.com/Anvita004/transcriptpro/pkg/token"
)

// Router holds all handlers
type Router struct {
	cfg             *config.Config
	captureHandler  *Capture
	meetingsHandler *Meetings
	aiHandler       *AI
	settingsHandler *SettingsHandler
	tokens          *token.Manager
}

// NewRouter creates a new router with all handlers
func NewRouter(cfg *config.Config, captureHandler *Capture, meetingsHandler *Meetings, aiHandler *AI, settingsHandler *SettingsHandler, tokens *token.Manager) *Router {
	return &Router{
		cfg:             cfg,
		captureHandler:  captureHandler,
		meetingsHandler: meetingsHandler,
		aiHandler:       aiHandler,
		settingsHandler: settingsHandler,
		tokens:          tokens,
	}
}

// Setup configures all application routes
func (rt *Router) Setup(e *echo.Echo) {
	e.GET("/health", rt.healthCheck)

	v1 := e.Group("/v1")

	rt.setupAgentRoutes(v1)
	rt.setupMeetingRoutes(v1)
	rt.setupAIRoutes(v1)
	rt.setupSettingsRoutes(v1)
}

// setupAgentRoutes configures the agent-facing ingest routes. Registration
// is open; everything else requires the agent token when auth is configured.
func (rt *Router) setupAgentRoutes(g *echo.Group) {
	agentGroup := g.Group("/agent")
	agentGroup.POST("/register", rt.captureHandler.Register)

	ingest := agentGroup.Group("", middleware.AgentAuth(rt.tokens))
	ingest.POST("/snapshots", rt.captureHandler.RegionSnapshot)
	ingest.POST("/controls", rt.captureHandler.Controls)
	ingest.POST("/clicks", rt.captureHandler.Click)
	ingest.POST("/title", rt.captureHandler.Title)
	ingest.POST("/tab-closed", rt.captureHandler.TabClosed)
}

// setupMeetingRoutes configures meeting history routes
func (rt *Router) setupMeetingRoutes(g *echo.Group) {
	meetingGroup := g.Group("/meetings")
	meetingGroup.GET("", rt.meetingsHandler.List)
	meetingGroup.GET("/archive", rt.meetingsHandler.ListArchive)
	meetingGroup.POST("/recover", rt.meetingsHandler.Recover)
	meetingGroup.POST("/:index/download", rt.meetingsHandler.Download)
	meetingGroup.POST("/:index/webhook-retry", rt.meetingsHandler.RetryWebhook)
}

// setupAIRoutes configures summary and search routes
func (rt *Router) setupAIRoutes(g *echo.Group) {
	aiGroup := g.Group("/ai")
	aiGroup.POST("/summary", rt.aiHandler.Summary)
	aiGroup.POST("/search", rt.aiHandler.Search)
}

// setupSettingsRoutes configures settings routes
func (rt *Router) setupSettingsRoutes(g *echo.Group) {
	settingsGroup := g.Group("/settings")
	settingsGroup.GET("", rt.settingsHandler.Get)
	settingsGroup.PUT("", rt.settingsHandler.Update)
	settingsGroup.GET("/active", rt.settingsHandler.GetActive)
	settingsGroup.PUT("/active", rt.settingsHandler.SetActive)
	settingsGroup.GET("/status", rt.settingsHandler.Status)
}

// healthCheck returns health status
func (rt *Router) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "ok",
		"environment": rt.cfg.Server.Environment,
	})
}
