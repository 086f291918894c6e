package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/JonasWehrle/StagePass/app/controllers"
	"github.com/JonasWehrle/StagePass/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1")

	// Payment webhooks authenticate via signature, not API key.
	v1.Post("/webhooks/payment/:provider", controllers.HandlePaymentWebhook)

	// Access checks and waitlist signups accept anonymous callers.
	v1.Post("/access/check", middleware.OptionalAPIKeyAuth(), controllers.HandleAccessCheck)
	v1.Post("/waitlist", middleware.OptionalAPIKeyAuth(), controllers.HandleWaitlistJoin)

	authed := v1.Group("", middleware.APIKeyAuthMiddleware())

	authed.Get("/user/account", controllers.HandleGetUserAccount)
	authed.Get("/user/purchases", controllers.HandleListUserPurchases)

	authed.Post("/grants", controllers.HandleGrantAccess)
	authed.Post("/grants/:uuid/cancel", controllers.HandleGrantCancel)
	authed.Post("/grants/:uuid/refund", controllers.HandleGrantRefund)

	authed.Post("/streams", controllers.HandleCreateStream)
	authed.Get("/streams/:uuid", controllers.HandleGetStream)
	authed.Post("/streams/:uuid/transition", controllers.HandleStreamTransition)
	authed.Get("/streams/:uuid/token", controllers.HandleStreamToken)
	authed.Get("/streams/:uuid/participants", controllers.HandleStreamParticipants)

	authed.Post("/waitlist/:id/approve", controllers.HandleWaitlistApprove)
	authed.Post("/waitlist/:id/reject", controllers.HandleWaitlistReject)

	authed.Get("/teams/:id/stats", controllers.HandleTeamStats)
	authed.Get("/teams/:id/members", controllers.HandleTeamMembers)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
