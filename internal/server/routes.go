// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/jobboard/internal/config"
	"codeberg.org/oliverandrich/jobboard/internal/handlers"
	appmw "codeberg.org/oliverandrich/jobboard/internal/middleware"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	"github.com/labstack/echo/v4"
)

// NewEcho builds the HTTP server with middleware and routes for app.
func NewEcho(cfg *config.Config, app *App) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handlers.ErrorHandler

	setupMiddleware(e, cfg, app.Metrics)
	setupRoutes(e, cfg, app)
	return e
}

func setupRoutes(e *echo.Echo, cfg *config.Config, app *App) {
	h := handlers.New(app.Repo)
	u := handlers.NewUser(app.Auth, app.Cookies, cfg.Auth.OTPLength, nil)

	e.GET("/health", h.Health)
	if app.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(app.Metrics.Handler()))
	}

	limited := authRateLimiter(cfg.Server.RateLimit)
	requireAuth := appmw.RequireAuth(app.Auth, app.Cookies)
	anyRole := appmw.RequireRole(models.RoleUser, models.RoleCompanyHR)

	user := e.Group("/user")
	user.POST("/signup", u.Signup)
	user.GET("/verify-email/:token", u.VerifyEmail)
	user.POST("/login", u.Login, limited)
	user.POST("/logout", u.Logout, requireAuth)

	user.PUT("/update", u.UpdateProfile, requireAuth, anyRole)
	user.DELETE("/delete", u.DeleteAccount, requireAuth, anyRole)
	user.GET("/get", u.GetProfile, requireAuth, anyRole)
	user.GET("/getAnotherUser", u.GetUser, requireAuth, anyRole)
	user.PATCH("/updatePassword", u.UpdatePassword, requireAuth, anyRole)

	user.POST("/forgetPassword", u.ForgetPassword, limited)
	user.POST("/verify-otp", u.VerifyOTP, limited)
	user.POST("/advancedForgetPassword", u.AdvancedForgetPassword, limited)
	user.POST("/verifyForgetPassword", u.VerifyResetCode, limited)
	user.PUT("/resetPassword", u.ResetPassword, limited)
}
