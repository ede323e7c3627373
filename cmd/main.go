package main

import (
	"fmt"
	"net/http"
	"time"

	_ "github.com/franciscosanchezn/pizza-service/docs" // Import generated docs
	"github.com/franciscosanchezn/pizza-service/internal/clients"
	"github.com/franciscosanchezn/pizza-service/internal/config"
	"github.com/franciscosanchezn/pizza-service/internal/controllers"
	"github.com/franciscosanchezn/pizza-service/internal/database"
	"github.com/franciscosanchezn/pizza-service/internal/middleware"
	"github.com/franciscosanchezn/pizza-service/internal/models"
	"github.com/franciscosanchezn/pizza-service/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

var (
	db              *gorm.DB
	pizzaService    services.PizzaService
	outletClient    *clients.OutletClient
	pizzaController controllers.PizzaController
	configuration   *config.Config
)

// @title Pizza Service API
// @version 1.0
// @description CRUD service for pizzas with role-gated mutations and outlet affiliation checks
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	// Load environment variables
	loadDotenvFile()

	// Initialize logger
	setUpLogger()

	// Load configuration
	configuration = loadConfig()

	// Initialize database connection
	setupDatabase(configuration)

	// Initialize clients, services and controllers
	outletClient = clients.NewOutletClient(configuration.OutletBaseURL, configuration.OutletTimeout)
	pizzaService = services.NewPizzaService(db)
	pizzaController = controllers.NewPizzaController(pizzaService, outletClient)

	// Initialize Gin router
	var router *gin.Engine = setupRouter()

	// Start the server
	log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
	router.Run(fmt.Sprintf("%v:%d", configuration.Host, configuration.Port))
}

// checkPanicErr checks if an error occurred and panics if it did
func checkPanicErr(err error) {
	if err != nil {
		panic(err)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
}

// loadConfig loads the application configuration from environment variables
// It returns a Config struct or panics if there is an error
func loadConfig() *config.Config {
	conf, err := config.LoadConfig()
	checkPanicErr(err)
	return conf
}

// setupDatabase initializes the database connection and returns a gorm.DB instance
func setupDatabase(conf *config.Config) *gorm.DB {
	var err error
	db, err = database.InitPizzaStore(database.DatabaseConfig{
		Driver:   conf.DBDriver,
		Host:     conf.DBHost,
		Port:     conf.DBPort,
		User:     conf.DBUser,
		Password: conf.DBPassword,
		Name:     conf.DBName,
		SSLMode:  conf.DBSSLMode,
		Path:     conf.DBPath,
	})
	checkPanicErr(err)

	// Migrate the schema
	checkPanicErr(db.AutoMigrate(&models.Pizza{}))

	// Seed only if empty
	var count int64
	db.Model(&models.Pizza{}).Count(&count)
	if count == 0 {
		log.Info("Database is empty, seeding initial data")
		seedDatabase()
	} else {
		log.Info("Database already seeded with initial data")
	}
	return db
}

// seedDatabase seeds the database with initial data
func seedDatabase() {
	downtown := "DT001"
	pizzas := []models.Pizza{
		{Name: "Margherita", Description: "Classic cheese and tomato pizza", Price: 9.99, Size: models.SizeMedium, Availability: true},
		{Name: "Pepperoni", Description: "Tomato sauce, mozzarella and pepperoni", Price: 12.99, Size: models.SizeLarge, Availability: true},
		{Name: "Vegetarian", Description: "Tomato sauce, mozzarella, bell peppers and olives", Price: 11.99, Size: models.SizeSmall, Availability: true, OutletCode: &downtown},
	}
	for _, pizza := range pizzas {
		db.Create(&pizza)
	}
	log.Info("Database seeded successfully")
}

// setupRouter initializes the Gin router and sets up the routes
// It returns the configured router
func setupRouter() *gin.Engine {
	router := gin.Default()
	router.Use(middleware.RequestID())

	setupRoutes(router)

	return router
}

// generateDevTokenHandler issues a short-lived signed token for manual testing.
// Only registered in development; real tokens come from the auth service.
func generateDevTokenHandler(c *gin.Context) {
	role := c.DefaultQuery("role", "ADMIN")

	claims := jwt.MapClaims{
		"sub":  "dev-user",
		"role": role,
		"jti":  uuid.New().String(),
		"exp":  time.Now().Add(time.Hour * 24).Unix(),
		"iat":  time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(configuration.JWTSecret))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      tokenString,
		"type":       "Bearer",
		"expires_in": 86400,
	})
}

// setupRoutes defines the routes for the Gin router
func setupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", healthCheckHandler)

	// Development token endpoint
	if config.GetEnvWithDefault("APP_ENV", "development") == "development" {
		router.GET("/dev/token", generateDevTokenHandler)
	}

	jwtSecret := []byte(configuration.JWTSecret)

	pizza := router.Group("/pizza")
	{
		// Public reads
		pizza.GET("", pizzaController.GetAllPizzas)
		pizza.GET("/", pizzaController.GetAllPizzas)
		pizza.GET("/:id", pizzaController.GetPizzaByID)

		// Requires a valid credential, any role
		authenticated := pizza.Group("")
		authenticated.Use(middleware.JWTAuth(jwtSecret))
		{
			authenticated.GET("/for-outlet/:code", pizzaController.GetPizzasForOutlet)
		}

		// Mutations require ADMIN or STAFF
		staff := pizza.Group("")
		staff.Use(middleware.JWTAuth(jwtSecret), middleware.RequireRole("ADMIN", "STAFF"))
		{
			staff.POST("/create", pizzaController.CreatePizza)
			staff.PUT("/:id", pizzaController.UpdatePizza)
			staff.DELETE("/:id", pizzaController.DeletePizza)
		}
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheckHandler handles the health check endpoint
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pizza-service",
	})
}
