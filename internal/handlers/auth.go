// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/auth"
	"codeberg.org/oliverandrich/jobboard/internal/models"
	authsvc "codeberg.org/oliverandrich/jobboard/internal/services/auth"
	"codeberg.org/oliverandrich/jobboard/internal/services/session"
	"codeberg.org/oliverandrich/jobboard/internal/validate"
	"github.com/labstack/echo/v4"
)

// UserHandlers serves the /user routes.
type UserHandlers struct {
	svc       *authsvc.Service
	cookies   *session.Manager
	otpLength int
	now       func() time.Time
}

// NewUser creates the user handlers. cookies may be nil, in which case no
// session cookie is set.
func NewUser(svc *authsvc.Service, cookies *session.Manager, otpLength int, now func() time.Time) *UserHandlers {
	if now == nil {
		now = time.Now
	}
	return &UserHandlers{svc: svc, cookies: cookies, otpLength: otpLength, now: now}
}

// SignupResponse is returned for a created account.
type SignupResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// LoginResponse carries the session token.
type LoginResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// UserResponse carries an account.
type UserResponse struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// PublicUser is what other users may see of an account.
type PublicUser struct {
	ID        string      `json:"_id"`
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	UserName  string      `json:"userName"`
	Role      models.Role `json:"role"`
}

// Signup handles POST /user/signup.
func (h *UserHandlers) Signup(c echo.Context) error {
	var in validate.SignupInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	in.RecoveryEmail = normalizeEmail(in.RecoveryEmail)
	if err := in.Validate(h.now); err != nil {
		return err
	}

	mobile, err := validate.NormalizeMobile(in.MobileNumber)
	if err != nil {
		return validate.Field("mobileNumber", err.Error())
	}
	dob, err := validate.ParseDate(in.DateOfBirth)
	if err != nil {
		return validate.Field("DOB", "must be a date")
	}

	user, err := h.svc.Signup(c.Request().Context(), authsvc.SignupParams{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		RecoveryEmail: in.RecoveryEmail,
		MobileNumber:  mobile,
		Password:      in.Password,
		DateOfBirth:   dob,
		Role:          models.Role(in.Role),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, SignupResponse{
		Message:  "user created, check your inbox to confirm your email",
		UserID:   user.ID,
		UserName: user.Handle,
	})
}

// VerifyEmail handles GET /user/verify-email/:token.
func (h *UserHandlers) VerifyEmail(c echo.Context) error {
	if err := h.svc.VerifyEmail(c.Request().Context(), c.Param("token")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "email confirmed"})
}

// Login handles POST /user/login.
func (h *UserHandlers) Login(c echo.Context) error {
	var in validate.LoginInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return err
	}

	var mobile string
	if in.MobileNumber != "" {
		var err error
		if mobile, err = validate.NormalizeMobile(in.MobileNumber); err != nil {
			return validate.Field("mobileNumber", err.Error())
		}
	}

	result, err := h.svc.Login(c.Request().Context(), in.Email, mobile, in.Password)
	if err != nil {
		return err
	}

	if h.cookies != nil {
		cookie, err := h.cookies.Create(result.Token)
		if err != nil {
			return err
		}
		c.SetCookie(cookie)
	}

	return c.JSON(http.StatusOK, LoginResponse{Message: "login successful", Token: result.Token})
}

// Logout handles POST /user/logout.
func (h *UserHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	user, claims := auth.GetUser(ctx), auth.GetClaims(ctx)
	if user == nil || claims == nil {
		return authsvc.ErrNotLoggedIn
	}

	if err := h.svc.Logout(ctx, user.ID, claims.ID); err != nil {
		return err
	}
	h.clearCookie(c)
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

// UpdateProfile handles PUT /user/update.
func (h *UserHandlers) UpdateProfile(c echo.Context) error {
	var in validate.UpdateProfileInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.Email = normalizeEmailPtr(in.Email)
	in.RecoveryEmail = normalizeEmailPtr(in.RecoveryEmail)
	if err := in.Validate(h.now); err != nil {
		return err
	}

	update := authsvc.ProfileUpdate{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		Email:         in.Email,
		RecoveryEmail: in.RecoveryEmail,
	}
	if in.MobileNumber != nil {
		mobile, err := validate.NormalizeMobile(*in.MobileNumber)
		if err != nil {
			return validate.Field("mobileNumber", err.Error())
		}
		update.MobileNumber = &mobile
	}
	if in.DateOfBirth != nil {
		dob, err := validate.ParseDate(*in.DateOfBirth)
		if err != nil {
			return validate.Field("DOB", "must be a date")
		}
		update.DateOfBirth = &dob
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), currentUserID(c), update)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Message: "profile updated", User: user})
}

// DeleteAccount handles DELETE /user/delete.
func (h *UserHandlers) DeleteAccount(c echo.Context) error {
	if err := h.svc.DeleteAccount(c.Request().Context(), currentUserID(c)); err != nil {
		return err
	}
	h.clearCookie(c)
	return c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

// GetProfile handles GET /user/get.
func (h *UserHandlers) GetProfile(c echo.Context) error {
	user, err := h.svc.GetProfile(c.Request().Context(), currentUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, UserResponse{Message: "done", User: user})
}

// GetUser handles GET /user/getAnotherUser?_id=.
func (h *UserHandlers) GetUser(c echo.Context) error {
	id := c.QueryParam("_id")
	if err := validate.ID(id); err != nil {
		return err
	}

	user, err := h.svc.GetUser(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"message": "done",
		"user": PublicUser{
			ID:        user.ID,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			UserName:  user.Handle,
			Role:      user.Role,
		},
	})
}

// UpdatePassword handles PATCH /user/updatePassword.
func (h *UserHandlers) UpdatePassword(c echo.Context) error {
	var in validate.UpdatePasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	if err := h.svc.UpdatePassword(c.Request().Context(), currentUserID(c), in.OldPassword, in.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// ForgetPassword handles POST /user/forgetPassword.
func (h *UserHandlers) ForgetPassword(c echo.Context) error {
	addr, err := h.emailParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.ForgetPassword(c.Request().Context(), addr); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "a one-time code was sent to your email"})
}

// VerifyOTP handles POST /user/verify-otp.
func (h *UserHandlers) VerifyOTP(c echo.Context) error {
	var in validate.VerifyOTPInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := in.Validate(h.otpLength); err != nil {
		return err
	}

	if err := h.svc.VerifyOTP(c.Request().Context(), in.OTP, in.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}

// AdvancedForgetPassword handles POST /user/advancedForgetPassword.
func (h *UserHandlers) AdvancedForgetPassword(c echo.Context) error {
	addr, err := h.emailParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.AdvancedForgetPassword(c.Request().Context(), addr); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "a reset code was sent to your email"})
}

// VerifyResetCode handles POST /user/verifyForgetPassword.
func (h *UserHandlers) VerifyResetCode(c echo.Context) error {
	var in validate.ResetCodeInput
	if err := bind(c, &in); err != nil {
		return err
	}
	if err := in.Validate(); err != nil {
		return err
	}

	if err := h.svc.VerifyResetCode(c.Request().Context(), in.ResetCode); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "reset code verified"})
}

// ResetPassword handles PUT /user/resetPassword.
func (h *UserHandlers) ResetPassword(c echo.Context) error {
	var in validate.ResetPasswordInput
	if err := bind(c, &in); err != nil {
		return err
	}
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return err
	}

	if err := h.svc.ResetPassword(c.Request().Context(), in.Email, in.Password); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password reset"})
}

// emailParam reads the address from the JSON body, falling back to the
// email query parameter.
func (h *UserHandlers) emailParam(c echo.Context) (string, error) {
	var in validate.EmailInput
	if c.Request().ContentLength != 0 {
		if err := bind(c, &in); err != nil {
			return "", err
		}
	}
	if in.Email == "" {
		in.Email = c.QueryParam("email")
	}
	in.Email = normalizeEmail(in.Email)
	if err := in.Validate(); err != nil {
		return "", err
	}
	return in.Email, nil
}

func (h *UserHandlers) clearCookie(c echo.Context) {
	if h.cookies != nil {
		c.SetCookie(h.cookies.Clear())
	}
}

// currentUserID returns the ID of the user loaded by RequireAuth.
func currentUserID(c echo.Context) string {
	if user := auth.GetUser(c.Request().Context()); user != nil {
		return user.ID
	}
	return ""
}
