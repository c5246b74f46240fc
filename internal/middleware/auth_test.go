package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"learnhub-server/internal/apperror"
	"learnhub-server/internal/models"
	"learnhub-server/internal/service"

	"github.com/gofiber/fiber/v3"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// stubUserStore serves FindByID from a fixed map; the guard only uses that
// lookup.
type stubUserStore struct {
	byID map[string]*models.User
}

func (s *stubUserStore) Create(ctx context.Context, user *models.User) error { return nil }

func (s *stubUserStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.User, error) {
	return s.byID[id.Hex()], nil
}

func (s *stubUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func (s *stubUserStore) FindByEmailAny(ctx context.Context, email string) (*models.User, error) {
	return nil, nil
}

func (s *stubUserStore) FindByResetTokenHash(ctx context.Context, hash string) (*models.User, error) {
	return nil, nil
}

func (s *stubUserStore) Update(ctx context.Context, user *models.User) error { return nil }

func (s *stubUserStore) FindAll(ctx context.Context, page, limit int) ([]*models.User, error) {
	return nil, nil
}

func newGuardedApp(jwtService *service.JWTService, store *stubUserStore) *fiber.App {
	auth := NewAuthMiddleware(jwtService, store)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c fiber.Ctx, err error) error {
			if kind := apperror.KindOf(err); kind != "" {
				return c.Status(apperror.HTTPStatus(kind)).JSON(fiber.Map{"error": string(kind)})
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})
	app.Use(auth.Guard())
	app.Get("/health", func(c fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/profile/me", func(c fiber.Ctx) error {
		return c.JSON(UserFromContext(c).Public())
	})
	app.Get("/admin/users", func(c fiber.Ctx) error {
		return c.SendString("admins only")
	}, auth.RestrictTo(models.RoleAdmin))
	return app
}

func TestGuard(t *testing.T) {
	jwtService := service.NewJWTService("guard-secret", 1)
	user := &models.User{
		ID:              bson.NewObjectID(),
		Email:           "guard@example.com",
		Role:            models.RoleUser,
		Active:          true,
		IsEmailVerified: true,
	}
	store := &stubUserStore{byID: map[string]*models.User{user.ID.Hex(): user}}
	app := newGuardedApp(jwtService, store)

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		path       string
		auth       string
		wantStatus int
	}{
		{"public route without token", "/health", "", http.StatusOK},
		{"protected route without token", "/profile/me", "", http.StatusUnauthorized},
		{"protected route with token", "/profile/me", "Bearer " + token, http.StatusOK},
		{"protected route with garbage token", "/profile/me", "Bearer nonsense", http.StatusUnauthorized},
		{"user role on admin route", "/admin/users", "Bearer " + token, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

func TestGuardAdminRole(t *testing.T) {
	jwtService := service.NewJWTService("guard-secret", 1)
	admin := &models.User{
		ID:     bson.NewObjectID(),
		Email:  "admin@example.com",
		Role:   models.RoleAdmin,
		Active: true,
	}
	store := &stubUserStore{byID: map[string]*models.User{admin.ID.Hex(): admin}}
	app := newGuardedApp(jwtService, store)

	token, err := jwtService.GenerateToken(admin)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("admin GET /admin/users status = %d, want 200", resp.StatusCode)
	}
}

func TestGuardDeletedAccount(t *testing.T) {
	jwtService := service.NewJWTService("guard-secret", 1)
	user := &models.User{ID: bson.NewObjectID(), Email: "gone@example.com", Role: models.RoleUser}
	// The store never returns this user, as the filtered lookup would for a
	// soft-deleted record.
	store := &stubUserStore{byID: map[string]*models.User{}}
	app := newGuardedApp(jwtService, store)

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("deleted account status = %d, want 401", resp.StatusCode)
	}
}

func TestGuardPasswordChangeInvalidatesToken(t *testing.T) {
	jwtService := service.NewJWTService("guard-secret", 1)
	user := &models.User{
		ID:     bson.NewObjectID(),
		Email:  "rotate@example.com",
		Role:   models.RoleUser,
		Active: true,
	}
	store := &stubUserStore{byID: map[string]*models.User{user.ID.Hex(): user}}
	app := newGuardedApp(jwtService, store)

	token, err := jwtService.GenerateToken(user)
	if err != nil {
		t.Fatal(err)
	}

	user.PasswordChangedAt = time.Now().Add(time.Second)

	req := httptest.NewRequest(http.MethodGet, "/profile/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("token issued before password change: status = %d, want 401", resp.StatusCode)
	}
}

func TestExtractTokenOrder(t *testing.T) {
	app := fiber.New()
	var got string
	app.Get("/probe", func(c fiber.Ctx) error {
		got = ExtractToken(c)
		return c.SendString("ok")
	})

	t.Run("bearer header wins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probe?token=from-query", nil)
		req.Header.Set("Authorization", "Bearer from-header")
		req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
		if _, err := app.Test(req); err != nil {
			t.Fatal(err)
		}
		if got != "from-header" {
			t.Errorf("ExtractToken() = %q, want from-header", got)
		}
	})

	t.Run("cookie before query", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probe?token=from-query", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: "from-cookie"})
		if _, err := app.Test(req); err != nil {
			t.Fatal(err)
		}
		if got != "from-cookie" {
			t.Errorf("ExtractToken() = %q, want from-cookie", got)
		}
	})

	t.Run("query as last resort", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/probe?token=from-query", nil)
		if _, err := app.Test(req); err != nil {
			t.Fatal(err)
		}
		if got != "from-query" {
			t.Errorf("ExtractToken() = %q, want from-query", got)
		}
	})
}
