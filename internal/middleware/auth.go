package middleware

import (
	"log"
	"strings"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/models"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var guardChecks = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "auth_guard_checks_total",
		Help: "Total number of route guard checks",
	},
	[]string{"outcome"}, // allowed/denied/public
)

// UserContextKey is where Protect stores the resolved user in fiber Locals.
const UserContextKey = "user"

// publicPrefixes bypass the guard entirely. Matched as path prefixes.
var publicPrefixes = []string{
	"/health",
	"/metrics",
	"/auth/signup",
	"/auth/login",
	"/auth/send-otp",
	"/auth/verify-otp",
	"/auth/setup-password",
	"/auth/check-email",
	"/auth/forgot-password",
	"/auth/reset-password",
	"/auth/google",
}

type AuthMiddleware struct {
	jwtService *service.JWTService
	users      service.UserStore
}

func NewAuthMiddleware(jwtService *service.JWTService, users service.UserStore) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
		users:      users,
	}
}

// Guard wraps every route: public prefixes pass through untouched, anything
// else must authenticate.
func (m *AuthMiddleware) Guard() fiber.Handler {
	return func(c fiber.Ctx) error {
		if isPublicPath(c.Path()) {
			guardChecks.WithLabelValues("public").Inc()
			return c.Next()
		}
		return m.protect(c)
	}
}

// Protect is the standalone form of the authenticated check, for routes
// registered outside the global guard.
func (m *AuthMiddleware) Protect() fiber.Handler {
	return m.protect
}

func (m *AuthMiddleware) protect(c fiber.Ctx) error {
	token := ExtractToken(c)
	if token == "" {
		guardChecks.WithLabelValues("denied").Inc()
		return apperror.New(apperror.Unauthenticated, "you are not logged in")
	}

	claims, err := m.jwtService.VerifyToken(token)
	if err != nil {
		guardChecks.WithLabelValues("denied").Inc()
		return apperror.Wrap(apperror.Unauthenticated, "invalid or expired session", err)
	}

	userID, err := bson.ObjectIDFromHex(claims.UserID)
	if err != nil {
		guardChecks.WithLabelValues("denied").Inc()
		return apperror.New(apperror.Unauthenticated, "invalid or expired session")
	}

	// Re-resolve the account on every request. The role inside the token is
	// never trusted: a downgrade must take effect before the token expires.
	user, err := m.users.FindByID(c.Context(), userID)
	if err != nil {
		return err
	}
	if user == nil {
		guardChecks.WithLabelValues("denied").Inc()
		return apperror.New(apperror.Unauthenticated, "account no longer exists")
	}

	if !user.PasswordChangedAt.IsZero() && claims.IssuedAt != nil &&
		user.PasswordChangedAt.After(claims.IssuedAt.Time) {
		guardChecks.WithLabelValues("denied").Inc()
		return apperror.New(apperror.Unauthenticated, "password changed recently, please log in again")
	}

	guardChecks.WithLabelValues("allowed").Inc()
	c.Locals(UserContextKey, user)
	return c.Next()
}

// RestrictTo gates an already-authenticated route by role membership.
func (m *AuthMiddleware) RestrictTo(roles ...string) fiber.Handler {
	return func(c fiber.Ctx) error {
		user := UserFromContext(c)
		if user == nil {
			return apperror.New(apperror.Unauthenticated, "you are not logged in")
		}
		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}
		log.Printf("Forbidden: user %s with role %s tried %s", user.Email, user.Role, c.Path())
		return apperror.New(apperror.Forbidden, "you do not have permission to perform this action")
	}
}

// UserFromContext returns the user attached by Protect, or nil.
func UserFromContext(c fiber.Ctx) *models.User {
	user, _ := c.Locals(UserContextKey).(*models.User)
	return user
}

// ExtractToken pulls the session token from the Authorization header, the
// token cookie, or the token query parameter, in that order.
func ExtractToken(c fiber.Ctx) string {
	auth := c.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return auth[7:]
	}
	if cookie := c.Cookies("token"); cookie != "" {
		return cookie
	}
	return c.Query("token")
}

func isPublicPath(path string) bool {
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
