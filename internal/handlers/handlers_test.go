package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/chachabrian/fleetshare-backend/internal/apperrors"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeUsers struct {
	mu    sync.Mutex
	next  uint
	byID  map[uint]*models.User
	email map[string]uint
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[uint]*models.User{}, email: map[string]uint{}}
}

func (f *fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.email[u.Email]; ok {
		return apperrors.ConflictError{Resource: "user", Msg: "duplicate email"}
	}
	f.next++
	u.ID = f.next
	cp := *u
	f.byID[u.ID] = &cp
	f.email[u.Email] = u.ID
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "user", ID: id}
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	id, ok := f.email[email]
	f.mu.Unlock()
	if !ok {
		return nil, apperrors.NotFoundError{Resource: "user", ID: email}
	}
	return f.GetByID(ctx, id)
}

func (f *fakeUsers) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[u.ID]; !ok {
		return apperrors.NotFoundError{Resource: "user", ID: u.ID}
	}
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error  string                 `json:"error"`
	Fields []apperrors.FieldError `json:"fields"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

// asUser stands in for AuthMiddleware.
func asUser(id uint, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", id)
		c.Set("userRole", string(role))
		c.Next()
	}
}

func TestRegisterAndLogin(t *testing.T) {
	users := newFakeUsers()
	auth := services.NewAuthService(users, "test-secret")

	r := gin.New()
	r.POST("/register", Register(auth))
	r.POST("/login", Login(auth))

	w := doJSON(r, http.MethodPost, "/register", gin.H{
		"name": "Ann", "email": "Ann@Example.com", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		Token string      `json:"token"`
		User  models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.Token)
	assert.Equal(t, "ann@example.com", created.User.Email)
	assert.Equal(t, models.RoleCustomer, created.User.Role)
	assert.NotContains(t, w.Body.String(), "password")

	w = doJSON(r, http.MethodPost, "/register", gin.H{
		"name": "Ann again", "email": "ann@example.com", "password": "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodPost, "/login", gin.H{"email": "ann@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/login", gin.H{"email": "ann@example.com", "password": "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "invalid email or password", decodeError(t, w).Error)
}

func TestRegisterValidation(t *testing.T) {
	r := gin.New()
	r.POST("/register", Register(services.NewAuthService(newFakeUsers(), "test-secret")))

	w := doJSON(r, http.MethodPost, "/register", gin.H{
		"email": "not-an-email", "password": "123", "role": "admin",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeError(t, w)
	assert.Equal(t, "validation failed", body.Error)
	assert.ElementsMatch(t, []apperrors.FieldError{
		{Field: "name", Message: "is required"},
		{Field: "email", Message: "must be a valid email address"},
		{Field: "password", Message: "must be at least 6 characters"},
		{Field: "role", Message: "must be one of customer, driver, owner"},
	}, body.Fields)
}

func TestProfileAndBlocking(t *testing.T) {
	users := newFakeUsers()
	svc := services.NewUserService(users)
	require.NoError(t, users.Create(context.Background(), &models.User{Name: "Bo", Email: "bo@x.co", Role: models.RoleCustomer, IsActive: true}))

	r := gin.New()
	r.PUT("/me", asUser(1, models.RoleCustomer), UpdateProfile(svc))
	r.PATCH("/users/:id/active", asUser(1, models.RoleCustomer), SetUserActive(svc))
	admin := r.Group("/admin", asUser(99, models.RoleAdmin))
	admin.PATCH("/users/:id/active", SetUserActive(svc))

	w := doJSON(r, http.MethodPut, "/me", gin.H{"name": "Bobby", "phone": "0700"})
	require.Equal(t, http.StatusOK, w.Code)
	u, err := users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Bobby", u.Name)

	w = doJSON(r, http.MethodPatch, "/users/1/active", gin.H{"active": false})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = doJSON(r, http.MethodPatch, "/admin/users/1/active", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPatch, "/admin/users/1/active", gin.H{"active": false})
	require.Equal(t, http.StatusOK, w.Code)
	u, err = users.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, u.IsActive)

	w = doJSON(r, http.MethodPatch, "/admin/users/42/active", gin.H{"active": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(r, http.MethodPatch, "/admin/users/abc/active", gin.H{"active": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRespondError(t *testing.T) {
	cases := []struct {
		err  error
		code int
	}{
		{apperrors.Invalid("x", "bad"), http.StatusBadRequest},
		{apperrors.NotFoundError{Resource: "tool", ID: 3}, http.StatusNotFound},
		{apperrors.ConflictError{Resource: "booking", Msg: "overlaps"}, http.StatusConflict},
		{apperrors.InvalidTransitionError{Resource: "booking", From: "completed", To: "cancelled"}, http.StatusUnprocessableEntity},
		{apperrors.UnauthorizedError{}, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/", func(c *gin.Context) { respondError(c, tc.err) })
		w := doJSON(r, http.MethodGet, "/", nil)
		assert.Equal(t, tc.code, w.Code, tc.err.Error())
	}

	r := gin.New()
	r.GET("/", func(c *gin.Context) { respondError(c, errors.New("pq: secret detail")) })
	w := doJSON(r, http.MethodGet, "/", nil)
	assert.NotContains(t, w.Body.String(), "secret detail")
}
