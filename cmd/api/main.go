package main

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"tradelink/internal/adapter/api"
	"tradelink/internal/adapter/api/handler"
	apimiddleware "tradelink/internal/adapter/api/middleware"
	"tradelink/internal/adapter/api/router"
	"tradelink/internal/adapter/repository"
	"tradelink/internal/infrastructure/firebase"
	"tradelink/internal/infrastructure/ratelimit"
	"tradelink/internal/infrastructure/websocket"
	"tradelink/internal/usecase"
	"tradelink/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opts []option.ClientOption
	if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(serviceAccountJSON)))
	} else if serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH"); serviceAccountPath != "" {
		opts = append(opts, option.WithCredentialsFile(serviceAccountPath))
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opts...)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opts...)
	if err != nil {
		log.Fatalf("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	firebaseAuth := firebase.NewFirebaseAuthClient(authClient, cfg.FirebaseAPIKey)

	// Repositories
	conversationRepo := repository.NewFirestoreConversationRepository(firestoreClient)
	rfqRepo := repository.NewFirestoreRFQRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	productRepo := repository.NewFirestoreProductRepository(firestoreClient)

	// Real-time transport
	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	// Usecases; the websocket manager is the room broadcaster for both.
	conversationUseCase := usecase.NewConversationUseCase(conversationRepo, userRepo, productRepo, wsManager)
	rfqUseCase := usecase.NewRFQUseCase(rfqRepo, productRepo, userRepo, conversationUseCase, wsManager)

	limiter := ratelimit.NewLimiter()
	limiter.StartCleanupRoutine()

	// Handlers
	handler.Setup(conversationUseCase, rfqUseCase)
	handler.SetupHealthHandler(firebaseAuth)
	handler.SetupDevTokenHandler(firebaseAuth)

	authMiddleware := apimiddleware.NewAuthMiddleware(firebaseAuth)
	wsHandler := handler.NewWebSocketHandler(wsManager, authMiddleware, conversationUseCase, rfqUseCase, limiter)

	e := echo.New()
	e.Validator = api.NewValidator()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{cfg.AllowedOrigin},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))

	router.Setup(e, authMiddleware, limiter)
	router.SetupWebSocketRouter(e, wsHandler)
	router.SetupDevRouter(e, cfg.Environment)

	log.Printf("Starting server on port %s (%s)", cfg.ServerPort, cfg.Environment)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
