package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gatherly/internal/config"
	"gatherly/internal/crypto"
	"gatherly/internal/database"
	"gatherly/internal/handlers"
	"gatherly/internal/jobs"
	"gatherly/internal/logging"
	"gatherly/internal/middleware"
	"gatherly/internal/services"
	"gatherly/pkg/auth"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logging.Init()

	log.Println("🚀 Starting Gatherly Server...")

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	}

	cfg := config.Load()
	log.Printf("📋 Configuration loaded (port %s)", cfg.Port)

	if cfg.MongoURI == "" {
		log.Fatal("❌ MONGODB_URI environment variable is required")
	}

	mongoDB, err := database.NewMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close(context.Background())

	initCtx, cancelInit := context.WithTimeout(context.Background(), 30*time.Second)
	if err := mongoDB.Initialize(initCtx); err != nil {
		cancelInit()
		log.Fatalf("❌ Failed to initialize MongoDB indexes: %v", err)
	}
	cancelInit()

	// Redis backs long-term assistant memory. The server still runs
	// without it, memory just stops surviving restarts.
	var redisService *services.RedisService
	if cfg.RedisURL != "" {
		redisService, err = services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable, long-term memory is process-local: %v", err)
			redisService = nil
		} else {
			defer redisService.Close()
		}
	}

	environment := os.Getenv("ENVIRONMENT")

	var jwtAuth *auth.LocalJWTAuth
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		log.Println("🔐 JWT authentication enabled")
	} else if environment == "production" {
		log.Fatal("❌ JWT_SECRET is required in production")
	} else {
		log.Println("⚠️  JWT_SECRET not set, running with development auth bypass")
	}

	var encryptionService *crypto.EncryptionService
	if cfg.EncryptionKey != "" {
		encryptionService, err = crypto.NewEncryptionService(cfg.EncryptionKey)
		if err != nil {
			log.Fatalf("❌ Failed to initialize encryption: %v", err)
		}
	} else if environment == "production" {
		log.Fatal("❌ ENCRYPTION_KEY is required in production")
	} else {
		key, err := crypto.GenerateMasterKey()
		if err != nil {
			log.Fatalf("❌ Failed to generate ephemeral encryption key: %v", err)
		}
		encryptionService, _ = crypto.NewEncryptionService(key)
		log.Println("⚠️  ENCRYPTION_KEY not set, using an ephemeral key (messages unreadable after restart)")
	}

	// LLM client with optional hot-reloaded provider file
	llmService := services.NewLLMService(cfg)
	if cfg.ProviderFile != "" {
		if err := llmService.WatchProviderFile(cfg.ProviderFile); err != nil {
			log.Printf("⚠️ Provider file watch failed: %v", err)
		}
	}
	defer llmService.Close()

	// Retrieval agents and the query router
	postRAG, err := services.NewPostRAGService(cfg.VectorDir, llmService)
	if err != nil {
		log.Fatalf("❌ Failed to open post vector store: %v", err)
	}
	eventRAG, err := services.NewEventRAGService(cfg.VectorDir, llmService)
	if err != nil {
		log.Fatalf("❌ Failed to open event vector store: %v", err)
	}

	longTermMemory := services.NewLongTermMemory(redisService)
	superAgent := services.NewSuperAgentService(llmService, longTermMemory, eventRAG, postRAG)

	// Domain services
	userService := services.NewUserService(mongoDB)
	suggestionService := services.NewSuggestionService(mongoDB, userService)
	postService := services.NewPostService(mongoDB, postRAG)
	commentService := services.NewCommentService(mongoDB)
	interactionService := services.NewInteractionService(mongoDB)
	eventService := services.NewEventService(mongoDB, eventRAG)
	ticketService := services.NewTicketService(mongoDB)
	sponsorService := services.NewSponsorService(mongoDB)
	saleService := services.NewSaleService(mongoDB)
	chatService := services.NewChatService(mongoDB, encryptionService)

	// Periodic retrieval index rebuild
	rebuilder, err := jobs.NewIndexRebuilder(postService, eventService, postRAG, eventRAG, cfg.RebuildInterval)
	if err != nil {
		log.Fatalf("❌ Failed to create index rebuilder: %v", err)
	}
	if err := rebuilder.Start(); err != nil {
		log.Fatalf("❌ Failed to start index rebuilder: %v", err)
	}
	defer rebuilder.Stop()

	// Handlers
	healthHandler := handlers.NewHealthHandler(mongoDB, redisService)
	authHandler := handlers.NewLocalAuthHandler(jwtAuth, userService)
	userHandler := handlers.NewUserHandler(userService, suggestionService)
	postHandler := handlers.NewPostHandler(postService, commentService)
	interactionHandler := handlers.NewInteractionHandler(interactionService)
	eventHandler := handlers.NewEventHandler(eventService, ticketService)
	sponsorHandler := handlers.NewSponsorHandler(sponsorService)
	saleHandler := handlers.NewSaleHandler(saleService)
	chatHandler := handlers.NewChatHandler(chatService)
	assistantHandler := handlers.NewAssistantHandler(superAgent)

	app := fiber.New(fiber.Config{
		AppName:      "Gatherly",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	prometheus := fiberprometheus.New("gatherly")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	origins := cfg.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PATCH, DELETE, OPTIONS",
	}))

	rateLimits := middleware.LoadRateLimitConfig()
	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimits))

	requireAuth := middleware.LocalAuthMiddleware(jwtAuth)
	publicRead := middleware.PublicReadRateLimiter(rateLimits)

	// Health and auth
	app.Get("/health", healthHandler.Live)
	app.Get("/health/ready", healthHandler.Ready)

	api := app.Group("/api")
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/refresh", authHandler.Refresh)
	authGroup.Post("/logout", requireAuth, authHandler.Logout)

	// Users and connections
	users := api.Group("/users")
	users.Get("/", publicRead, userHandler.List)
	users.Get("/me", requireAuth, userHandler.Me)
	users.Patch("/me", requireAuth, userHandler.UpdateProfile)
	users.Get("/:id", publicRead, userHandler.GetProfile)

	connections := api.Group("/connections", requireAuth)
	connections.Post("/", userHandler.SendConnection)
	connections.Get("/", userHandler.Connections)
	connections.Get("/pending", userHandler.PendingConnections)
	connections.Get("/suggestions", userHandler.Suggestions)
	connections.Post("/:id/respond", userHandler.RespondConnection)

	// Posts, comments, interactions
	posts := api.Group("/posts")
	posts.Get("/", publicRead, postHandler.List)
	posts.Post("/", requireAuth, postHandler.Create)
	posts.Get("/:id", publicRead, postHandler.Get)
	posts.Patch("/:id", requireAuth, postHandler.Update)
	posts.Delete("/:id", requireAuth, postHandler.Delete)
	posts.Get("/:id/comments", publicRead, postHandler.Comments)
	posts.Post("/:id/comments", requireAuth, postHandler.AddComment)
	posts.Get("/:id/sale", publicRead, saleHandler.GetByPost)

	api.Patch("/comments/:id", requireAuth, postHandler.UpdateComment)
	api.Delete("/comments/:id", requireAuth, postHandler.DeleteComment)

	interactions := api.Group("/interactions", requireAuth)
	interactions.Post("/react", interactionHandler.React)
	interactions.Post("/bookmark", interactionHandler.Bookmark)
	interactions.Post("/share", interactionHandler.Share)
	interactions.Get("/bookmarks", interactionHandler.Bookmarks)
	interactions.Get("/:targetId/counts", interactionHandler.Counts)

	// Events, tickets, sponsorships
	events := api.Group("/events")
	events.Get("/", publicRead, eventHandler.List)
	events.Post("/", requireAuth, eventHandler.Create)
	events.Get("/:id", publicRead, eventHandler.Get)
	events.Patch("/:id", requireAuth, eventHandler.Update)
	events.Delete("/:id", requireAuth, eventHandler.Delete)
	events.Post("/:id/publish", requireAuth, eventHandler.Publish)
	events.Post("/:id/tickets", requireAuth, eventHandler.Purchase)
	events.Get("/:id/attendance", requireAuth, eventHandler.Attendance)
	events.Get("/:id/purchases", requireAuth, eventHandler.Purchases)
	events.Post("/:id/sponsorship", requireAuth, eventHandler.RequestSponsorship)
	events.Get("/:id/booths", publicRead, sponsorHandler.EventBooths)

	api.Get("/tickets", requireAuth, eventHandler.MyTickets)
	api.Get("/tickets/verify/:token", requireAuth, eventHandler.VerifyTicket)
	api.Post("/sponsor-requests/:id/respond", requireAuth, eventHandler.RespondSponsorship)

	// Sponsor profiles, booths, products
	sponsors := api.Group("/sponsors", requireAuth)
	sponsors.Post("/", sponsorHandler.CreateProfile)
	sponsors.Get("/me", sponsorHandler.MyProfile)
	sponsors.Post("/me/representatives", sponsorHandler.AddRepresentative)

	booths := api.Group("/booths")
	booths.Post("/", requireAuth, sponsorHandler.CreateBooth)
	booths.Get("/:id/products", publicRead, sponsorHandler.BoothProducts)
	booths.Post("/:id/products", requireAuth, sponsorHandler.AddProduct)

	// Sales
	sales := api.Group("/sales", requireAuth)
	sales.Get("/", saleHandler.List)
	sales.Post("/", saleHandler.Create)
	sales.Post("/:id/buy", saleHandler.Buy)
	sales.Post("/:id/close", saleHandler.Close)

	// Direct messages
	chat := api.Group("/chat", requireAuth)
	chat.Post("/conversations", chatHandler.Open)
	chat.Get("/conversations", chatHandler.List)
	chat.Post("/conversations/:id/messages", chatHandler.Send)
	chat.Get("/conversations/:id/messages", chatHandler.Messages)

	// Assistant with its own tighter rate limit
	assistant := api.Group("/assistant", requireAuth, middleware.AssistantRateLimiter(rateLimits))
	assistant.Post("/query", assistantHandler.Query)

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-shutdown
		log.Println("🛑 Shutting down...")
		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Shutdown error: %v", err)
		}
	}()

	addr := ":" + strings.TrimPrefix(cfg.Port, ":")
	log.Printf("🌐 Listening on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server error: %v", err)
	}

	log.Println("👋 Server stopped")
}
