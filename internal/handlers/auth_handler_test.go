package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"smartspend/internal/auth"
	apperrors "smartspend/internal/errors"
	"smartspend/internal/middleware"
	"smartspend/internal/models"
	"smartspend/internal/services"
	"smartspend/internal/testutil"
	"smartspend/internal/validator"
)

// --- mock user service ---

type mockUserService struct {
	createUserFn     func(ctx context.Context, name, email, password string) (*models.User, error)
	getUserByEmailFn func(ctx context.Context, email string) (*models.User, error)
	getUserByIDFn    func(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	verifyPasswordFn func(user *models.User, password string) bool
}

func (m *mockUserService) CreateUser(ctx context.Context, name, email, password string) (*models.User, error) {
	if m.createUserFn != nil {
		return m.createUserFn(ctx, name, email, password)
	}
	return testNewUser(), nil
}

func (m *mockUserService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.getUserByEmailFn != nil {
		return m.getUserByEmailFn(ctx, email)
	}
	return testNewUser(), nil
}

func (m *mockUserService) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	if m.getUserByIDFn != nil {
		return m.getUserByIDFn(ctx, id)
	}
	return testNewUser(), nil
}

func (m *mockUserService) VerifyPassword(user *models.User, password string) bool {
	if m.verifyPasswordFn != nil {
		return m.verifyPasswordFn(user, password)
	}
	return true
}

var _ services.UserServicer = (*mockUserService)(nil)

func testNewUser() *models.User {
	return &models.User{
		ID:       primitive.NewObjectID(),
		Name:     "Ada",
		Email:    "ada@x.com",
		Password: "$2a$12$notarealhash",
	}
}

// --- test helpers ---

func init() {
	gin.SetMode(gin.TestMode)
	validator.Register()
}

var testTokens = auth.NewTokenService("handler-test-secret", time.Hour)

func setupAuthRouter(handler *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/api/auth/signup", handler.Signup)
	r.POST("/api/auth/login", handler.Login)
	r.GET("/api/auth/me", injectUserID(primitive.NewObjectID()), handler.GetMe)
	return r
}

func injectUserID(uid primitive.ObjectID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextUserID, uid)
		c.Next()
	}
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func parseJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse response JSON: %v\nbody: %s", err, rec.Body.String())
	}
	return result
}

// --- tests ---

func TestAuthHandler_Signup(t *testing.T) {
	t.Run("returns 201 with user and token", func(t *testing.T) {
		created := testNewUser()
		userSvc := &mockUserService{
			createUserFn: func(_ context.Context, name, email, _ string) (*models.User, error) {
				created.Name = name
				created.Email = email
				return created, nil
			},
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/signup",
			`{"name":"Ada","email":"ada@x.com","password":"secret1"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["token"] == nil || result["token"] == "" {
			t.Error("expected a token in the response")
		}
		user := result["user"].(map[string]interface{})
		if user["email"] != "ada@x.com" {
			t.Errorf("expected email ada@x.com, got %v", user["email"])
		}
		if strings.Contains(rec.Body.String(), "password") {
			t.Error("response must never contain a password field")
		}
	})

	t.Run("returns 400 on duplicate email", func(t *testing.T) {
		userSvc := &mockUserService{
			createUserFn: func(_ context.Context, _, _, _ string) (*models.User, error) {
				return nil, apperrors.ErrDuplicateEmail
			},
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/signup",
			`{"name":"Ada","email":"ada@x.com","password":"secret1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on invalid email", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/signup",
			`{"name":"Ada","email":"not-an-email","password":"secret1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on short password", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/signup",
			`{"name":"Ada","email":"ada@x.com","password":"abc"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 400 on missing name", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/signup",
			`{"email":"ada@x.com","password":"secret1"}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthHandler_Login(t *testing.T) {
	t.Run("returns 200 with user and token", func(t *testing.T) {
		handler := NewAuthHandler(&mockUserService{}, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/login",
			`{"email":"ada@x.com","password":"secret1"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		result := parseJSON(t, rec)
		if result["token"] == nil || result["token"] == "" {
			t.Error("expected a token in the response")
		}
	})

	t.Run("returns 401 on unknown email", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByEmailFn: func(_ context.Context, _ string) (*models.User, error) {
				return nil, apperrors.ErrUserNotFound
			},
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/login",
			`{"email":"nobody@x.com","password":"secret1"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 401 on wrong password", func(t *testing.T) {
		userSvc := &mockUserService{
			verifyPasswordFn: func(_ *models.User, _ string) bool { return false },
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/login",
			`{"email":"ada@x.com","password":"wrong"}`)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("returns 500 when the store is unavailable", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByEmailFn: func(_ context.Context, _ string) (*models.User, error) {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, errors.New("connection refused"))
			},
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "POST", "/api/auth/login",
			`{"email":"ada@x.com","password":"secret1"}`)

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d: %s", rec.Code, rec.Body.String())
		}
		if strings.Contains(rec.Body.String(), "connection refused") {
			t.Error("store failure detail must not be echoed to the client")
		}
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		unknownEmail := &mockUserService{
			getUserByEmailFn: func(_ context.Context, _ string) (*models.User, error) {
				return nil, apperrors.ErrUserNotFound
			},
		}
		wrongPassword := &mockUserService{
			verifyPasswordFn: func(_ *models.User, _ string) bool { return false },
		}

		recUnknown := doRequest(setupAuthRouter(NewAuthHandler(unknownEmail, testTokens)),
			"POST", "/api/auth/login", `{"email":"nobody@x.com","password":"secret1"}`)
		recWrong := doRequest(setupAuthRouter(NewAuthHandler(wrongPassword, testTokens)),
			"POST", "/api/auth/login", `{"email":"ada@x.com","password":"wrong"}`)

		if recUnknown.Code != recWrong.Code || recUnknown.Body.String() != recWrong.Body.String() {
			t.Errorf("responses must match to prevent account enumeration:\n%s\n%s",
				recUnknown.Body.String(), recWrong.Body.String())
		}
	})
}

func TestAuthHandler_GetMe(t *testing.T) {
	t.Run("returns the profile", func(t *testing.T) {
		user := testutil.NewTestUser(t)
		userSvc := &mockUserService{
			getUserByIDFn: func(_ context.Context, _ primitive.ObjectID) (*models.User, error) {
				return user, nil
			},
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/api/auth/me", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		result := parseJSON(t, rec)
		profile := result["user"].(map[string]interface{})
		if profile["email"] != user.Email {
			t.Errorf("expected email %s, got %v", user.Email, profile["email"])
		}
	})

	t.Run("returns 404 when the user no longer exists", func(t *testing.T) {
		userSvc := &mockUserService{
			getUserByIDFn: func(_ context.Context, _ primitive.ObjectID) (*models.User, error) {
				return nil, apperrors.ErrUserNotFound
			},
		}
		handler := NewAuthHandler(userSvc, testTokens)
		r := setupAuthRouter(handler)

		rec := doRequest(r, "GET", "/api/auth/me", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}
