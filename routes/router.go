package routes

import (
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/models"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/services"
	"github.com/Jeffrey-Dev-max/kenya-dwell-connect/utils"
	"github.com/kataras/iris/v12"
)

// Router registers every API route on app. utils.InitializeTokens must have
// been called first.
func Router(app *iris.Application) {
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		origin := ctx.GetHeader("Origin")
		if origin == "" {
			origin = "*"
		}
		ctx.Header("Access-Control-Allow-Origin", origin)
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Client-Info, Apikey")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})
	app.Use(services.MetricsMiddleware)

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})
	app.Get("/metrics", services.MetricsHandler())

	authed := utils.AccessTokenMiddleware()
	owners := utils.RoleMiddleware(models.RoleHomeowner, models.RoleAdmin)

	auth := app.Party("/api/auth")
	{
		auth.Post("/signup", Signup)
		auth.Post("/login", Login)
		auth.Post("/refresh", utils.RefreshTokenMiddleware(), RefreshToken)
		auth.Get("/me", authed, utils.UserIDFromTokenMiddleware, GetMe)
	}

	app.Get("/api/amenities", GetAmenities)
	app.Get("/api/listing-fee", GetListingFee)
	app.Get("/api/dashboard", authed, utils.UserIDFromTokenMiddleware, GetDashboard)

	property := app.Party("/api/properties")
	{
		property.Get("/", SearchProperties)
		property.Get("/mine", authed, utils.UserIDFromTokenMiddleware, GetMyProperties)
		property.Post("/", authed, utils.NotBannedMiddleware, owners, utils.UserIDFromTokenMiddleware, CreateProperty)
		property.Get("/{id}", utils.OptionalAccessToken, GetProperty)
		property.Get("/{id}/reviews", GetPropertyReviews)
		property.Patch("/{id}/status", authed, utils.NotBannedMiddleware, utils.UserIDFromTokenMiddleware, UpdatePropertyStatus)
		property.Delete("/{id}", authed, utils.UserIDFromTokenMiddleware, DeleteProperty)
	}

	savedSearch := app.Party("/api/saved-searches", authed, utils.UserIDFromTokenMiddleware)
	{
		savedSearch.Post("/", CreateSavedSearch)
		savedSearch.Get("/", GetSavedSearches)
		savedSearch.Delete("/{id}", DeleteSavedSearch)
	}

	booking := app.Party("/api/bookings", authed, utils.UserIDFromTokenMiddleware)
	{
		booking.Post("/", utils.NotBannedMiddleware, CreateBooking)
		booking.Get("/", GetMyBookings)
		booking.Get("/hosting", GetHostingBookings)
		booking.Patch("/{id}/status", UpdateBookingStatus)
	}

	app.Post("/api/messages", authed, utils.NotBannedMiddleware, utils.UserIDFromTokenMiddleware, SendMessage)
	conversation := app.Party("/api/conversations", authed, utils.UserIDFromTokenMiddleware)
	{
		conversation.Get("/", GetConversations)
		conversation.Get("/{id}/messages", GetConversationMessages)
		conversation.Post("/{id}/read", MarkConversationRead)
	}

	app.Post("/api/reviews", authed, utils.UserIDFromTokenMiddleware, CreateReview)

	payments := app.Party("/api/payments")
	{
		payments.Post("/mpesa/callback", MpesaCallback)
		payments.Post("/mpesa/stk-push", authed, utils.NotBannedMiddleware, utils.UserIDFromTokenMiddleware, InitiateSTKPush)
		payments.Get("/{id}", authed, utils.UserIDFromTokenMiddleware, GetPayment)
	}

	admin := app.Party("/api/admin", authed, utils.AdminOnlyMiddleware)
	{
		admin.Post("/actions", AdminAction)
		admin.Get("/users", AdminListUsers)
		admin.Get("/users/{id}", AdminGetUser)
		admin.Get("/reviews", AdminListReviews)
		admin.Delete("/reviews/{id}", AdminDeleteReview)
		admin.Get("/properties", AdminListProperties)
		admin.Get("/transactions", AdminListTransactions)
		admin.Get("/activity", AdminActivity)
	}
}
