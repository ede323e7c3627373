package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/franciscosanchezn/pizza-service/internal/clients"
	"github.com/franciscosanchezn/pizza-service/internal/middleware"
	"github.com/franciscosanchezn/pizza-service/internal/models"
	"github.com/franciscosanchezn/pizza-service/internal/services"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// PizzaController handles HTTP requests related to pizzas
type PizzaController interface {
	// GetAllPizzas retrieves all pizzas
	GetAllPizzas(c *gin.Context)
	// GetPizzaByID retrieves a pizza by its ID
	GetPizzaByID(c *gin.Context)
	// GetPizzasForOutlet retrieves pizzas sold at a given outlet
	GetPizzasForOutlet(c *gin.Context)
	// CreatePizza creates a new pizza
	CreatePizza(c *gin.Context)
	// UpdatePizza partially updates an existing pizza
	UpdatePizza(c *gin.Context)
	// DeletePizza deletes a pizza by its ID
	DeletePizza(c *gin.Context)
}

type controller struct {
	service  services.PizzaService
	verifier clients.OutletVerifier
}

// NewPizzaController creates a new instance of PizzaController.
// The outlet verifier is injected so tests can substitute a stub.
func NewPizzaController(service services.PizzaService, verifier clients.OutletVerifier) PizzaController {
	return &controller{service: service, verifier: verifier}
}

// CreatePizza godoc
// @Summary Create a new pizza
// @Description Create a new pizza; name must be unique and an optional outlet code must exist in the outlet service
// @Tags pizzas
// @Accept json
// @Produce json
// @Param pizza body models.PizzaCreate true "Pizza to create"
// @Success 201 {object} models.Pizza
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Failure 503 {object} models.APIError
// @Security BearerAuth
// @Router /pizza/create [post]
func (c *controller) CreatePizza(ctx *gin.Context) {
	var req models.PizzaCreate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
		return
	}

	// Presence checks instead of binding tags: zero values (price 0, empty
	// name) are valid input and must not read as absent
	if req.Name == nil || req.Price == nil {
		ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrValidationFailed, "name and price are required"))
		return
	}

	size, err := models.ParseSize(req.Size)
	if err != nil {
		ctx.JSON(http.StatusUnprocessableEntity, models.NewAPIError(models.ErrPizzaInvalidSize, err.Error()))
		return
	}

	// Pre-check for a friendlier message; the unique index still decides races
	if _, err := c.service.GetPizzaByName(ctx.Request.Context(), *req.Name); err == nil {
		ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrPizzaExists, "Pizza already exists"))
		return
	} else if !errors.Is(err, services.ErrPizzaNotFound) {
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to create pizza"))
		return
	}

	if req.OutletCode != nil && *req.OutletCode != "" {
		if !c.verifyOutlet(ctx, *req.OutletCode) {
			return
		}
	}

	availability := true
	if req.Availability != nil {
		availability = *req.Availability
	}

	pizza := models.Pizza{
		Name:         *req.Name,
		Description:  req.Description,
		Price:        *req.Price,
		Size:         size,
		Availability: availability,
		OutletCode:   req.OutletCode,
	}

	created, err := c.service.CreatePizza(ctx.Request.Context(), pizza)
	if err != nil {
		if errors.Is(err, services.ErrDuplicatePizza) {
			ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrPizzaExists, "Pizza already exists"))
			return
		}
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to create pizza"))
		return
	}

	log.WithFields(log.Fields{
		"id":   created.ID,
		"name": created.Name,
	}).Info("Pizza created")
	ctx.JSON(http.StatusCreated, created)
}

// GetAllPizzas godoc
// @Summary Get all pizzas
// @Description Get a list of all pizzas
// @Tags pizzas
// @Produce json
// @Success 200 {array} models.Pizza
// @Failure 500 {object} models.APIError
// @Router /pizza/ [get]
func (c *controller) GetAllPizzas(ctx *gin.Context) {
	pizzas, err := c.service.ListPizzas(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to retrieve pizzas"))
		return
	}
	ctx.JSON(http.StatusOK, pizzas)
}

// GetPizzaByID godoc
// @Summary Get pizza by ID
// @Description Get a single pizza by its ID
// @Tags pizzas
// @Produce json
// @Param id path int true "Pizza ID"
// @Success 200 {object} models.Pizza
// @Failure 400 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Router /pizza/{id} [get]
func (c *controller) GetPizzaByID(ctx *gin.Context) {
	id, ok := c.pizzaID(ctx)
	if !ok {
		return
	}

	pizza, err := c.service.GetPizzaByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPizzaNotFound) {
			ctx.JSON(http.StatusNotFound, models.NewAPIError(models.ErrPizzaNotFound, "Pizza not found"))
			return
		}
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to retrieve pizza"))
		return
	}
	ctx.JSON(http.StatusOK, pizza)
}

// GetPizzasForOutlet godoc
// @Summary Get pizzas for an outlet
// @Description Get pizzas sold at the given outlet, including pizzas available at every outlet
// @Tags pizzas
// @Produce json
// @Param code path string true "Outlet code"
// @Success 200 {array} models.Pizza
// @Failure 401 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 503 {object} models.APIError
// @Security BearerAuth
// @Router /pizza/for-outlet/{code} [get]
func (c *controller) GetPizzasForOutlet(ctx *gin.Context) {
	code := ctx.Param("code")

	if !c.verifyOutlet(ctx, code) {
		return
	}

	pizzas, err := c.service.ListPizzasForOutlet(ctx.Request.Context(), code)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to retrieve pizzas"))
		return
	}
	ctx.JSON(http.StatusOK, pizzas)
}

// UpdatePizza godoc
// @Summary Update a pizza
// @Description Partially update a pizza; only fields present in the payload are applied
// @Tags pizzas
// @Accept json
// @Produce json
// @Param id path int true "Pizza ID"
// @Param pizza body models.PizzaUpdate true "Fields to update"
// @Success 200 {object} models.Pizza
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Failure 422 {object} models.APIError
// @Security BearerAuth
// @Router /pizza/{id} [put]
func (c *controller) UpdatePizza(ctx *gin.Context) {
	id, ok := c.pizzaID(ctx)
	if !ok {
		return
	}

	var req models.PizzaUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid request body"))
		return
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Price != nil {
		updates["price"] = *req.Price
	}
	if req.Size != nil {
		size, err := models.ParseSize(*req.Size)
		if err != nil {
			ctx.JSON(http.StatusUnprocessableEntity, models.NewAPIError(models.ErrPizzaInvalidSize, err.Error()))
			return
		}
		updates["size"] = size
	}
	if req.Availability != nil {
		updates["availability"] = *req.Availability
	}
	if req.OutletCodeSet() {
		if req.OutletCode != nil {
			updates["outlet_code"] = *req.OutletCode
		} else {
			// Explicit null clears the affiliation: NULL column, every outlet
			updates["outlet_code"] = nil
		}
	}

	updated, err := c.service.UpdatePizza(ctx.Request.Context(), id, updates)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPizzaNotFound):
			ctx.JSON(http.StatusNotFound, models.NewAPIError(models.ErrPizzaNotFound, "Pizza not found"))
		case errors.Is(err, services.ErrDuplicatePizza):
			ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrPizzaExists, "Pizza already exists"))
		default:
			ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to update pizza"))
		}
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

// DeletePizza godoc
// @Summary Delete a pizza
// @Description Permanently delete a pizza by its ID
// @Tags pizzas
// @Produce json
// @Param id path int true "Pizza ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} models.APIError
// @Failure 401 {object} models.APIError
// @Failure 403 {object} models.APIError
// @Failure 404 {object} models.APIError
// @Security BearerAuth
// @Router /pizza/{id} [delete]
func (c *controller) DeletePizza(ctx *gin.Context) {
	id, ok := c.pizzaID(ctx)
	if !ok {
		return
	}

	if err := c.service.DeletePizza(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, services.ErrPizzaNotFound) {
			ctx.JSON(http.StatusNotFound, models.NewAPIError(models.ErrPizzaNotFound, "Pizza not found"))
			return
		}
		ctx.JSON(http.StatusInternalServerError, models.NewAPIError(models.ErrInternalServer, "Failed to delete pizza"))
		return
	}

	log.WithField("id", id).Info("Pizza deleted")
	ctx.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Pizza with ID %d has been deleted successfully", id),
	})
}

// pizzaID parses the id path parameter, answering 400 on malformed input
func (c *controller) pizzaID(ctx *gin.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, models.NewAPIError(models.ErrBadRequest, "Invalid pizza ID format"))
		return 0, false
	}
	return id, true
}

// verifyOutlet confirms the outlet exists, forwarding the caller's credential.
// Writes the error response and returns false when verification fails.
func (c *controller) verifyOutlet(ctx *gin.Context, code string) bool {
	credential := ctx.GetString(middleware.ContextCredential)
	if credential == "" {
		credential = ctx.GetHeader("Authorization")
	}

	err := c.verifier.VerifyOutlet(ctx.Request.Context(), code, credential)
	if err == nil {
		return true
	}

	if errors.Is(err, clients.ErrOutletNotFound) {
		ctx.JSON(http.StatusNotFound, models.NewAPIError(models.ErrOutletNotFound,
			fmt.Sprintf("Outlet with code '%s' not found", code)))
		return false
	}

	ctx.JSON(http.StatusServiceUnavailable, models.NewAPIError(models.ErrOutletUnavailable,
		"Failed to communicate with outlet service"))
	return false
}
