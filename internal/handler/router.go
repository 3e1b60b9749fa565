package handler

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/makeasinger/studio/internal/config"
	"github.com/makeasinger/studio/internal/middleware"
	ws "github.com/makeasinger/studio/internal/websocket"
)

// Router wires handlers and middleware onto a fiber app
type Router struct {
	Generations *GenerationHandler
	Chat        *ChatHandler
	Tracks      *TrackHandler
	Covers      *CoverHandler
	Auth        *AuthHandler
	Hub         *ws.Hub

	APIAuth     fiber.Handler
	RateLimiter *middleware.RateLimiter
	Limits      config.RateLimitConfig

	// Services reports which optional integrations are configured
	Services func() fiber.Map
}

// Mount registers every route
func (r *Router) Mount(app *fiber.App) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		services := fiber.Map{}
		if r.Services != nil {
			services = r.Services()
		}
		return c.JSON(fiber.Map{
			"status":   "ok",
			"services": services,
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// ForwardAuth verification endpoint (internal, called by Traefik)
	app.Get("/auth/verify", r.Auth.Verify)

	api := app.Group("/api", r.APIAuth)

	gens := api.Group("/generations")
	gens.Post("/", r.RateLimiter.GenerateLimit(r.Limits.GeneratePerHour), r.Generations.Submit)
	gens.Get("/", r.Generations.List)
	gens.Post("/cancel-all", r.Generations.CancelAll)
	gens.Get("/completed/next", r.Generations.NextCompleted)
	gens.Get("/:id", r.Generations.Get)
	gens.Post("/:id/cancel", r.Generations.Cancel)

	api.Post("/chat", r.RateLimiter.ChatLimit(r.Limits.ChatPerMin), r.Chat.Reply)
	api.Post("/covers", r.RateLimiter.CoverLimit(r.Limits.CoverPerHour), r.Covers.Generate)

	tracks := api.Group("/tracks")
	tracks.Get("/", r.Tracks.List)
	tracks.Get("/:id", r.Tracks.Get)
	tracks.Delete("/:id", r.Tracks.Delete)
	tracks.Get("/:id/lyrics", r.Tracks.Lyrics)
	tracks.Put("/:id/cover", r.Tracks.ApplyCover)

	// WebSocket routes
	wsGroup := app.Group("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, r.APIAuth)

	wsGroup.Get("/generations", websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, ws.AllJobs)
	}))
	wsGroup.Get("/generations/:id", websocket.New(func(c *websocket.Conn) {
		r.Hub.HandleConnection(c, c.Params("id"))
	}))
}
