package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"kpitracker/database"
	"kpitracker/handlers"
	"kpitracker/middlewares"
	repository "kpitracker/repositories"
	routes "kpitracker/routes"
	services "kpitracker/services"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file:", err)
	}

	// Get MongoDB credentials from environment variables
	username := os.Getenv("MONGO_USERNAME")
	password := os.Getenv("MONGO_PASSWORD")
	cluster := os.Getenv("MONGO_CLUSTER")
	appName := os.Getenv("MONGO_APP_NAME")
	jwtSecret := os.Getenv("JWT_SECRET")

	if username == "" || password == "" || cluster == "" || appName == "" {
		log.Fatal("Missing required environment variables")
	}

	// Build MongoDB Atlas connection string
	uri := fmt.Sprintf("mongodb+srv://%s:%s@%s/?retryWrites=true&w=majority&appName=%s",
		username, password, cluster, appName)

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(context.TODO(), clientOptions)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer func() {
		if err = client.Disconnect(context.TODO()); err != nil {
			log.Fatal("Failed to disconnect from MongoDB:", err)
		}
	}()

	// Set a timeout for the ping operation
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ping the primary to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB:", err)
	}

	fmt.Println("Successfully connected to MongoDB Atlas!")

	// Initialize database
	db := client.Database("kpi_tracker")

	fmt.Println("Creating database indexes...")
	if err := database.CreateIndexes(db); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}

	// Repositories
	kpiRepo := repository.NewKPIRepository(db)
	valueRepo := repository.NewKPIValueRepository(db)
	reminderLog := repository.NewReminderLogRepository(db)

	// Core engines
	validationService := services.NewValidationService(middlewares.RoleAuthorizer{})
	statusService := services.NewStatusService(valueRepo)
	statisticsService := services.NewStatisticsService()
	reminderService := services.NewReminderService(valueRepo)

	// Application services and handlers
	kpiService := services.NewKPIService(kpiRepo, valueRepo, validationService)
	valueService := services.NewValueService(kpiRepo, valueRepo, validationService)

	kpiHandler := handlers.NewKPIHandler(kpiService, statusService)
	valueHandler := handlers.NewValueHandler(valueService)
	analyticsHandler := handlers.NewAnalyticsHandler(valueRepo, statisticsService)
	reminderHandler := handlers.NewReminderHandler(kpiRepo, reminderService, reminderLog)

	// Setup routes using ServeMux with JWT middleware
	mux := routes.SetupRoutes(kpiHandler, valueHandler, analyticsHandler, reminderHandler, jwtSecret)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	fmt.Printf("Server starting on port %s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, mux))
}
