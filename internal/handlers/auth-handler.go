package handlers

import (
	"learnhub-server/internal/apperror"
	"learnhub-server/internal/middleware"
	"learnhub-server/internal/models"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	loginAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_login_attempts_total",
			Help: "Total number of login attempts",
		},
		[]string{"status", "method"}, // status: success/failure, method: password/google
	)

	registrationAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_registration_attempts_total",
			Help: "Total number of registration attempts",
		},
		[]string{"status", "method"},
	)

	loginDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auth_login_duration_seconds",
			Help:    "Time spent processing login requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"}, // password/google
	)

	otpRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_otp_requests_total",
			Help: "Total number of OTP issuance requests",
		},
		[]string{"purpose", "status"},
	)
)

type AuthHandler struct {
	userService *service.UserService
	otpService  *service.OTPService
	jwtService  *service.JWTService
}

func NewAuthHandler(userService *service.UserService, otpService *service.OTPService, jwtService *service.JWTService) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		otpService:  otpService,
		jwtService:  jwtService,
	}
}

func (h *AuthHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/health", h.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	authGroup := app.Group("/auth")
	authGroup.Post("/signup", h.Signup)
	authGroup.Post("/login", h.Login)
	authGroup.Post("/send-otp", h.SendOTP)
	authGroup.Post("/verify-otp", h.VerifyOTP)
	authGroup.Post("/setup-password", h.SetupPassword)
	authGroup.Post("/check-email", h.CheckEmail)
	authGroup.Post("/forgot-password", h.ForgotPassword)
	authGroup.Patch("/reset-password/:token", h.ResetPassword)

	// Behind the guard: not in the public prefix allowlist.
	authGroup.Patch("/update-my-password", h.UpdateMyPassword)
	authGroup.Delete("/me", h.DeleteMe)
}

func (h *AuthHandler) HealthCheck(c fiber.Ctx) error {
	return c.Status(fiber.StatusOK).SendString("OK")
}

func (h *AuthHandler) Signup(c fiber.Ctx) error {
	var req struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
		Email     string `json:"email"`
		Password  string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		registrationAttempts.WithLabelValues("failure", "password").Inc()
		return apperror.New(apperror.ValidationError, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		registrationAttempts.WithLabelValues("failure", "password").Inc()
		return apperror.New(apperror.ValidationError, "email and password are required")
	}

	user, err := h.userService.Signup(c.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		registrationAttempts.WithLabelValues("failure", "password").Inc()
		return err
	}

	registrationAttempts.WithLabelValues("success", "password").Inc()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "account created, please verify your email",
		"data": fiber.Map{
			"email": user.Email,
			"type":  "signup",
		},
	})
}

func (h *AuthHandler) Login(c fiber.Ctx) error {
	timer := prometheus.NewTimer(loginDuration.WithLabelValues("password"))
	defer timer.ObserveDuration()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		loginAttempts.WithLabelValues("failure", "password").Inc()
		return apperror.New(apperror.ValidationError, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		loginAttempts.WithLabelValues("failure", "password").Inc()
		return apperror.New(apperror.ValidationError, "email and password are required")
	}

	user, err := h.userService.Login(c.Context(), req.Email, req.Password)
	if err != nil {
		loginAttempts.WithLabelValues("failure", "password").Inc()
		return err
	}

	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		loginAttempts.WithLabelValues("failure", "password").Inc()
		return err
	}

	loginAttempts.WithLabelValues("success", "password").Inc()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "success",
		"token":  token,
		"data": fiber.Map{
			"user": user.Public(),
		},
	})
}

func (h *AuthHandler) SendOTP(c fiber.Ctx) error {
	var req struct {
		Email     string `json:"email"`
		Type      string `json:"type"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}

	if err := h.otpService.RequestOTP(c.Context(), req.Email, req.Type, req.FirstName, req.LastName); err != nil {
		otpRequests.WithLabelValues(req.Type, "failure").Inc()
		return err
	}

	otpRequests.WithLabelValues(req.Type, "success").Inc()
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "verification code sent",
		"data": fiber.Map{
			"email": req.Email,
			"type":  req.Type,
		},
	})
}

func (h *AuthHandler) VerifyOTP(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
		Type  string `json:"type"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}
	if req.Email == "" || req.OTP == "" {
		return apperror.New(apperror.ValidationError, "email and otp are required")
	}

	result, err := h.otpService.VerifyOTP(c.Context(), req.Email, req.OTP, req.Type)
	if err != nil {
		return err
	}
	user := result.User

	response := fiber.Map{
		"status":                "success",
		"message":               "verification successful",
		"requiresPasswordSetup": result.RequiresPasswordSetup,
		"data": fiber.Map{
			"email":     user.Email,
			"type":      req.Type,
			"userId":    user.ID.Hex(),
			"firstName": user.FirstName,
			"lastName":  user.LastName,
		},
	}

	// No session until a password exists for OTP-initiated signups.
	if !result.RequiresPasswordSetup {
		token, err := h.jwtService.GenerateToken(user)
		if err != nil {
			return err
		}
		response["token"] = token
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *AuthHandler) SetupPassword(c fiber.Ctx) error {
	var req struct {
		Email           string `json:"email"`
		Password        string `json:"password"`
		PasswordConfirm string `json:"passwordConfirm"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}
	if req.Password != req.PasswordConfirm {
		return apperror.New(apperror.ValidationError, "passwords do not match")
	}

	user, err := h.userService.SetupPassword(c.Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "password set, you are now logged in",
		"token":   token,
		"data": fiber.Map{
			"user": fiber.Map{
				"id":        user.ID.Hex(),
				"email":     user.Email,
				"firstName": user.FirstName,
				"lastName":  user.LastName,
			},
		},
	})
}

func (h *AuthHandler) CheckEmail(c fiber.Ctx) error {
	var req struct {
		Email         string `json:"email"`
		CheckVerified bool   `json:"checkVerified"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}
	if req.Email == "" {
		return apperror.New(apperror.ValidationError, "email is required")
	}

	user, err := h.userService.CheckEmail(c.Context(), req.Email)
	if err != nil {
		return err
	}

	response := fiber.Map{
		"status":     "success",
		"exists":     user != nil,
		"isVerified": user != nil && user.IsEmailVerified,
		"isLocal":    user != nil && user.AuthProvider == models.ProviderLocal,
		"user":       nil,
	}
	if user != nil {
		response["user"] = fiber.Map{
			"firstName": user.FirstName,
			"lastName":  user.LastName,
		}
	}
	return c.Status(fiber.StatusOK).JSON(response)
}

func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req struct {
		Email string `json:"email"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}
	if req.Email == "" {
		return apperror.New(apperror.ValidationError, "email is required")
	}

	if err := h.userService.ForgotPassword(c.Context(), req.Email); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "reset link sent to your email",
	})
}

func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var req struct {
		Password string `json:"password"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}

	user, err := h.userService.ResetPassword(c.Context(), c.Params("token"), req.Password)
	if err != nil {
		return err
	}

	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "password reset, you are now logged in",
		"token":   token,
	})
}

func (h *AuthHandler) UpdateMyPassword(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.Bind().Body(&req); err != nil {
		return apperror.New(apperror.ValidationError, "invalid request body")
	}

	if err := h.userService.UpdatePassword(c.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	// The old token just became invalid, hand back a fresh one.
	token, err := h.jwtService.GenerateToken(user)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "password updated",
		"token":   token,
	})
}

func (h *AuthHandler) DeleteMe(c fiber.Ctx) error {
	user := middleware.UserFromContext(c)
	if user == nil {
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	if err := h.userService.SoftDelete(c.Context(), user); err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status":  "success",
		"message": "account deactivated",
	})
}
