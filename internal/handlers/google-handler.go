package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/repository"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

const oauthStateTTL = 10 * time.Minute

type GoogleHandler struct {
	oauthService      *service.GoogleOAuthService
	federationService *service.FederationService
	jwtService        *service.JWTService
	redisRepo         *repository.RedisRepo
	feAddress         string
}

func NewGoogleHandler(oauthService *service.GoogleOAuthService, federationService *service.FederationService, jwtService *service.JWTService, redisRepo *repository.RedisRepo, feAddress string) *GoogleHandler {
	return &GoogleHandler{
		oauthService:      oauthService,
		federationService: federationService,
		jwtService:        jwtService,
		redisRepo:         redisRepo,
		feAddress:         strings.TrimRight(feAddress, "/"),
	}
}

func (h *GoogleHandler) RegisterRoutes(app *fiber.App) {
	authGroup := app.Group("/auth/google")
	authGroup.Get("/", h.GoogleLogin)
	authGroup.Get("/callback", h.GoogleCallback)
}

func stateKey(state string) string {
	return "google-auth-state:" + state
}

// GoogleLogin starts the OAuth dance. The client-declared intent (login or
// signup) rides in Redis keyed by the random state parameter, so the
// callback can apply the federation decision table without trusting the
// query string Google echoes back.
func (h *GoogleHandler) GoogleLogin(c fiber.Ctx) error {
	action := c.Query("action", service.FederationActionLogin)
	if action != service.FederationActionLogin && action != service.FederationActionSignup {
		return apperror.New(apperror.ValidationError, "action must be login or signup")
	}

	state := uuid.NewString()
	if err := h.redisRepo.SaveStructCached(c.Context(), stateKey(state), action, oauthStateTTL); err != nil {
		log.Printf("Failed to cache oauth state: %v", err)
		return fmt.Errorf("failed to store oauth state: %w", err)
	}

	return c.Redirect().To(h.oauthService.GetAuthURL(state))
}

func (h *GoogleHandler) GoogleCallback(c fiber.Ctx) error {
	state := c.Query("state")
	var action string
	if err := h.redisRepo.GetStructCached(c.Context(), stateKey(state), &action); err != nil {
		log.Printf("OAuth state %q not found: %v", state, err)
		return h.redirectError(c, "authentication session expired, please try again")
	}
	h.redisRepo.DeleteKey(c.Context(), stateKey(state))

	code := c.Query("code")
	if code == "" {
		return h.redirectError(c, "authorization code is missing")
	}

	token, err := h.oauthService.Exchange(c.Context(), code)
	if err != nil {
		log.Printf("Token exchange error: %v", err)
		return h.redirectError(c, "failed to complete Google sign-in")
	}

	profile, err := h.oauthService.GetUserInfo(c.Context(), token)
	if err != nil {
		log.Printf("Userinfo fetch error: %v", err)
		return h.redirectError(c, "failed to complete Google sign-in")
	}

	user, err := h.federationService.Authenticate(c.Context(), profile, action)
	if err != nil {
		loginAttempts.WithLabelValues("failure", "google").Inc()
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return h.redirectError(c, appErr.Message)
		}
		log.Printf("Federation error for %s: %v", profile.Email, err)
		return h.redirectError(c, "authentication failed")
	}

	sessionToken, err := h.jwtService.GenerateToken(user)
	if err != nil {
		return h.redirectError(c, "authentication failed")
	}

	loginAttempts.WithLabelValues("success", "google").Inc()

	userJSON, _ := json.Marshal(user.Public())
	redirect := fmt.Sprintf("%s/auth/callback?token=%s&user=%s",
		h.feAddress, url.QueryEscape(sessionToken), url.QueryEscape(string(userJSON)))
	return c.Redirect().To(redirect)
}

func (h *GoogleHandler) redirectError(c fiber.Ctx, message string) error {
	return c.Redirect().To(h.feAddress + "/auth/callback?error=" + url.QueryEscape(message))
}
