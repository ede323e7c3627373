package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/franciscosanchezn/pizza-service/internal/clients"
	"github.com/franciscosanchezn/pizza-service/internal/middleware"
	"github.com/franciscosanchezn/pizza-service/internal/models"
	"github.com/franciscosanchezn/pizza-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testSecret = []byte("test-jwt-secret-key-32-characters")

// stubVerifier satisfies clients.OutletVerifier without a network
type stubVerifier struct {
	err            error
	lastCode       string
	lastCredential string
}

func (s *stubVerifier) VerifyOutlet(_ context.Context, code, credential string) error {
	s.lastCode = code
	s.lastCredential = credential
	return s.err
}

type testEnv struct {
	router   *gin.Engine
	service  services.PizzaService
	verifier *stubVerifier
}

// setupTestEnv wires the controller the same way main does, backed by an
// in-memory database and a stub outlet verifier.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Pizza{}))

	verifier := &stubVerifier{}
	service := services.NewPizzaService(db)
	ctrl := NewPizzaController(service, verifier)

	router := gin.New()
	pizza := router.Group("/pizza")
	{
		pizza.GET("", ctrl.GetAllPizzas)
		pizza.GET("/:id", ctrl.GetPizzaByID)

		authenticated := pizza.Group("")
		authenticated.Use(middleware.JWTAuth(testSecret))
		{
			authenticated.GET("/for-outlet/:code", ctrl.GetPizzasForOutlet)
		}

		staff := pizza.Group("")
		staff.Use(middleware.JWTAuth(testSecret), middleware.RequireRole("ADMIN", "STAFF"))
		{
			staff.POST("/create", ctrl.CreatePizza)
			staff.PUT("/:id", ctrl.UpdatePizza)
			staff.DELETE("/:id", ctrl.DeletePizza)
		}
	}

	return &testEnv{router: router, service: service, verifier: verifier}
}

func tokenWithRole(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "user-1",
		"role": role,
		"iat":  time.Now().Add(-time.Minute).Unix(),
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + signed
}

func (e *testEnv) do(t *testing.T, method, path, authHeader string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodePizza(t *testing.T, w *httptest.ResponseRecorder) models.Pizza {
	t.Helper()
	var pizza models.Pizza
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pizza))
	return pizza
}

func TestCreatePizza(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name":  "Margherita",
		"price": 9.99,
		"size":  "MEDIUM",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	created := decodePizza(t, w)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Margherita", created.Name)
	assert.Equal(t, models.SizeMedium, created.Size)
	assert.True(t, created.Availability)
	assert.Nil(t, created.OutletCode)

	// Round-trip: get-by-id returns the identical record with size as string
	w = env.do(t, http.MethodGet, fmt.Sprintf("/pizza/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"size":"MEDIUM"`)
}

func TestCreatePizzaDuplicateName(t *testing.T) {
	env := setupTestEnv(t)
	auth := tokenWithRole(t, "ADMIN")
	payload := gin.H{"name": "Margherita", "price": 9.99, "size": "MEDIUM"}

	w := env.do(t, http.MethodPost, "/pizza/create", auth, payload)
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodPost, "/pizza/create", auth, payload)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "already exists")
}

func TestCreatePizzaRequiresCredential(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", "", gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreatePizzaForbiddenRole(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "CUSTOMER"), gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM",
	})

	assert.Equal(t, http.StatusForbidden, w.Code)

	// No record persisted
	pizzas, err := env.service.ListPizzas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pizzas)
}

func TestCreatePizzaStaffRoleAllowed(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "STAFF"), gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM",
	})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreatePizzaZeroPriceAccepted(t *testing.T) {
	env := setupTestEnv(t)

	// Price has no enforced range; an explicit zero is valid input
	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Freebie", "price": 0, "size": "SMALL",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0.0, decodePizza(t, w).Price)

	// Negative values pass the same way
	w = env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Refund Special", "price": -5, "size": "SMALL",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreatePizzaMissingRequiredFields(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Margherita", "size": "MEDIUM",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "required")

	w = env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"price": 9.99, "size": "MEDIUM",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreatePizzaExplicitUnavailability(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM", "availability": false,
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.False(t, decodePizza(t, w).Availability)

	stored, err := env.service.GetPizzaByID(context.Background(), decodePizza(t, w).ID)
	require.NoError(t, err)
	assert.False(t, stored.Availability)
}

func TestCreatePizzaInvalidSize(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Margherita", "price": 9.99, "size": "GIGANTIC",
	})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestCreatePizzaWithOutlet(t *testing.T) {
	env := setupTestEnv(t)
	auth := tokenWithRole(t, "ADMIN")

	w := env.do(t, http.MethodPost, "/pizza/create", auth, gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM", "outlet_code": "OUT-A",
	})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "OUT-A", env.verifier.lastCode)
	// The caller's credential is forwarded untouched
	assert.Equal(t, auth, env.verifier.lastCredential)
}

func TestCreatePizzaOutletNotFound(t *testing.T) {
	env := setupTestEnv(t)
	env.verifier.err = fmt.Errorf("%w: code %q", clients.ErrOutletNotFound, "NOPE")

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM", "outlet_code": "NOPE",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Outlet with code 'NOPE' not found")

	// Verification failure persists nothing
	pizzas, err := env.service.ListPizzas(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pizzas)
}

func TestCreatePizzaOutletUnavailable(t *testing.T) {
	env := setupTestEnv(t)
	env.verifier.err = clients.ErrOutletUnavailable

	w := env.do(t, http.MethodPost, "/pizza/create", tokenWithRole(t, "ADMIN"), gin.H{
		"name": "Margherita", "price": 9.99, "size": "MEDIUM", "outlet_code": "OUT-A",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "Failed to communicate with outlet service")
}

func TestGetAllPizzasIsPublic(t *testing.T) {
	env := setupTestEnv(t)
	seedPizza(t, env, "Margherita", nil)
	seedPizza(t, env, "Pepperoni", nil)

	w := env.do(t, http.MethodGet, "/pizza", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var pizzas []models.Pizza
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pizzas))
	assert.Len(t, pizzas, 2)
}

func TestGetPizzaByIDNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/pizza/9999", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPizzaByIDInvalidFormat(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/pizza/abc", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdatePizzaPartialPayload(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "ADMIN"), gin.H{"price": 14.50})

	require.Equal(t, http.StatusOK, w.Code)
	updated := decodePizza(t, w)
	assert.Equal(t, 14.50, updated.Price)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Size, updated.Size)
	assert.Equal(t, created.Availability, updated.Availability)
	assert.Equal(t, created.OutletCode, updated.OutletCode)
}

func TestUpdatePizzaEmptyPayload(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "STAFF"), gin.H{})

	require.Equal(t, http.StatusOK, w.Code)
	updated := decodePizza(t, w)
	assert.Equal(t, created.Name, updated.Name)
	assert.Equal(t, created.Price, updated.Price)
	assert.Equal(t, created.Size, updated.Size)
	assert.Equal(t, created.Availability, updated.Availability)
}

func TestUpdatePizzaSizeNormalized(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "ADMIN"), gin.H{"size": "large"})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SizeLarge, decodePizza(t, w).Size)
}

func TestUpdatePizzaInvalidSize(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "ADMIN"), gin.H{"size": "FAMILY"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Nothing was applied
	current, err := env.service.GetPizzaByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Size, current.Size)
}

func TestUpdatePizzaClearsOutletCodeWithNull(t *testing.T) {
	env := setupTestEnv(t)
	outletA := "OUT-A"
	created := seedPizza(t, env, "OnlyAtA", &outletA)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "ADMIN"), gin.H{"outlet_code": nil})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decodePizza(t, w).OutletCode)

	// Back to outlet-agnostic: listed for outlets it never belonged to
	w = env.do(t, http.MethodGet, "/pizza/for-outlet/OUT-B", tokenWithRole(t, "CUSTOMER"), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "OnlyAtA")
}

func TestUpdatePizzaOmittedOutletCodeUntouched(t *testing.T) {
	env := setupTestEnv(t)
	outletA := "OUT-A"
	created := seedPizza(t, env, "OnlyAtA", &outletA)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "ADMIN"), gin.H{"price": 12.0})

	require.Equal(t, http.StatusOK, w.Code)
	updated := decodePizza(t, w)
	require.NotNil(t, updated.OutletCode)
	assert.Equal(t, "OUT-A", *updated.OutletCode)
}

func TestUpdatePizzaRequiresCredential(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodPut, fmt.Sprintf("/pizza/%d", created.ID), "", gin.H{"price": 1.0})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdatePizzaNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodPut, "/pizza/9999", tokenWithRole(t, "ADMIN"), gin.H{"price": 1.0})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePizza(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "ADMIN"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(),
		fmt.Sprintf("Pizza with ID %d has been deleted successfully", created.ID))

	// Gone for good
	w = env.do(t, http.MethodGet, fmt.Sprintf("/pizza/%d", created.ID), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePizzaNotFound(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodDelete, "/pizza/9999", tokenWithRole(t, "STAFF"), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeletePizzaForbiddenRole(t *testing.T) {
	env := setupTestEnv(t)
	created := seedPizza(t, env, "Margherita", nil)

	w := env.do(t, http.MethodDelete, fmt.Sprintf("/pizza/%d", created.ID),
		tokenWithRole(t, "CUSTOMER"), nil)

	assert.Equal(t, http.StatusForbidden, w.Code)

	// Still there
	_, err := env.service.GetPizzaByID(context.Background(), created.ID)
	assert.NoError(t, err)
}

func TestGetPizzasForOutlet(t *testing.T) {
	env := setupTestEnv(t)
	outletA := "OUT-A"
	outletB := "OUT-B"
	seedPizza(t, env, "Everywhere", nil)
	seedPizza(t, env, "OnlyAtA", &outletA)
	seedPizza(t, env, "OnlyAtB", &outletB)

	w := env.do(t, http.MethodGet, "/pizza/for-outlet/OUT-A", tokenWithRole(t, "CUSTOMER"), nil)

	require.Equal(t, http.StatusOK, w.Code)
	var pizzas []models.Pizza
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pizzas))

	names := make([]string, 0, len(pizzas))
	for _, p := range pizzas {
		names = append(names, p.Name)
	}
	// Outlet-agnostic pizzas appear in every outlet's listing
	assert.ElementsMatch(t, []string{"Everywhere", "OnlyAtA"}, names)
}

func TestGetPizzasForOutletRequiresCredential(t *testing.T) {
	env := setupTestEnv(t)

	w := env.do(t, http.MethodGet, "/pizza/for-outlet/OUT-A", "", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetPizzasForOutletUnknownCode(t *testing.T) {
	env := setupTestEnv(t)
	env.verifier.err = fmt.Errorf("%w: code %q", clients.ErrOutletNotFound, "NOPE")

	w := env.do(t, http.MethodGet, "/pizza/for-outlet/NOPE", tokenWithRole(t, "ADMIN"), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetPizzasForOutletServiceDown(t *testing.T) {
	env := setupTestEnv(t)
	env.verifier.err = clients.ErrOutletUnavailable

	w := env.do(t, http.MethodGet, "/pizza/for-outlet/OUT-A", tokenWithRole(t, "ADMIN"), nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func seedPizza(t *testing.T, env *testEnv, name string, outletCode *string) models.Pizza {
	t.Helper()
	pizza, err := env.service.CreatePizza(context.Background(), models.Pizza{
		Name:         name,
		Description:  "test pizza",
		Price:        9.99,
		Size:         models.SizeMedium,
		Availability: true,
		OutletCode:   outletCode,
	})
	require.NoError(t, err)
	return pizza
}
