package services

import (
	"context"
	"errors"

	"github.com/franciscosanchezn/pizza-service/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

var (
	// ErrPizzaNotFound is returned when no pizza matches the given id or name
	ErrPizzaNotFound = errors.New("pizza not found")

	// ErrDuplicatePizza is returned when a pizza with the same name already exists.
	// The unique index on name is the authoritative check; callers may pre-check
	// with GetPizzaByName but must still handle this error on create.
	ErrDuplicatePizza = errors.New("pizza already exists")
)

// PizzaService provides data access for pizza records
type PizzaService interface {
	// ListPizzas retrieves all pizzas
	ListPizzas(ctx context.Context) ([]models.Pizza, error)
	// ListPizzasForOutlet retrieves pizzas sold at the given outlet,
	// including outlet-agnostic pizzas (no outlet code)
	ListPizzasForOutlet(ctx context.Context, code string) ([]models.Pizza, error)
	// GetPizzaByID retrieves a pizza by its ID
	GetPizzaByID(ctx context.Context, id int) (models.Pizza, error)
	// GetPizzaByName retrieves a pizza by its exact name
	GetPizzaByName(ctx context.Context, name string) (models.Pizza, error)
	// CreatePizza persists a new pizza and assigns its ID
	CreatePizza(ctx context.Context, pizza models.Pizza) (models.Pizza, error)
	// UpdatePizza applies only the given columns to the pizza with the given ID
	UpdatePizza(ctx context.Context, id int, updates map[string]interface{}) (models.Pizza, error)
	// DeletePizza permanently removes a pizza by its ID
	DeletePizza(ctx context.Context, id int) error
}

// pizzaService is the GORM-backed implementation of PizzaService
type pizzaService struct {
	db *gorm.DB
}

// NewPizzaService creates a new instance of PizzaService
func NewPizzaService(db *gorm.DB) PizzaService {
	return &pizzaService{db: db}
}

func (s *pizzaService) ListPizzas(ctx context.Context) ([]models.Pizza, error) {
	var pizzas []models.Pizza
	if err := s.db.WithContext(ctx).Find(&pizzas).Error; err != nil {
		return nil, err
	}
	return pizzas, nil
}

func (s *pizzaService) ListPizzasForOutlet(ctx context.Context, code string) ([]models.Pizza, error) {
	var pizzas []models.Pizza
	err := s.db.WithContext(ctx).
		Where("outlet_code = ? OR outlet_code IS NULL", code).
		Find(&pizzas).Error
	if err != nil {
		return nil, err
	}
	return pizzas, nil
}

func (s *pizzaService) GetPizzaByID(ctx context.Context, id int) (models.Pizza, error) {
	var pizza models.Pizza
	if err := s.db.WithContext(ctx).First(&pizza, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Pizza{}, ErrPizzaNotFound
		}
		return models.Pizza{}, err
	}
	return pizza, nil
}

func (s *pizzaService) GetPizzaByName(ctx context.Context, name string) (models.Pizza, error) {
	var pizza models.Pizza
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&pizza).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Pizza{}, ErrPizzaNotFound
		}
		return models.Pizza{}, err
	}
	return pizza, nil
}

func (s *pizzaService) CreatePizza(ctx context.Context, pizza models.Pizza) (models.Pizza, error) {
	if err := s.db.WithContext(ctx).Create(&pizza).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Pizza{}, ErrDuplicatePizza
		}
		log.WithError(err).WithField("name", pizza.Name).Error("Failed to create pizza")
		return models.Pizza{}, err
	}
	return pizza, nil
}

func (s *pizzaService) UpdatePizza(ctx context.Context, id int, updates map[string]interface{}) (models.Pizza, error) {
	pizza, err := s.GetPizzaByID(ctx, id)
	if err != nil {
		return models.Pizza{}, err
	}

	if len(updates) > 0 {
		err = s.db.WithContext(ctx).Model(&pizza).Updates(updates).Error
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.Pizza{}, ErrDuplicatePizza
			}
			log.WithError(err).WithField("id", id).Error("Failed to update pizza")
			return models.Pizza{}, err
		}
	}

	return s.GetPizzaByID(ctx, id)
}

func (s *pizzaService) DeletePizza(ctx context.Context, id int) error {
	result := s.db.WithContext(ctx).Delete(&models.Pizza{}, id)
	if result.Error != nil {
		log.WithError(result.Error).WithField("id", id).Error("Failed to delete pizza")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPizzaNotFound
	}
	return nil
}
