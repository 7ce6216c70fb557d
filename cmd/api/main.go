package main

import (
	"context"

	_ "backend/api/swagger" // swagger docs
	"backend/internal/config"
	"backend/internal/database"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/websocket"
	"backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Shop Admin API
// @version         1.0
// @description     E-commerce admin console backend: catalog CRUD with a uniform trash-bin lifecycle, category tree and role-permission matrix.
// @host            localhost:8080
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// .env is optional; plain environment variables still apply
	_ = godotenv.Load("configs/.env")

	cfg := config.Load()
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.Log.Level})

	db, err := database.NewConnection(cfg.DB.ConnectionString())
	if err != nil {
		log.Fatal().Err(err).Msg("Database connection failed")
	}
	log.Info().Msg("Connected to PostgreSQL successfully")

	middleware.InitPermissionMiddleware(db)

	// Set up WebSocket Hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	notifier := websocket.NewLifecycleNotifier(wsHub)

	// Set up dependencies (Repository -> Service -> Handler)
	auditService := service.NewAuditService(db, log)

	txManager := repository.NewTransactionManager(db)
	categoryRepo := repository.NewCategoryRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)
	brandCol := repository.NewCollection[model.Brand](db, "name")
	colorCol := repository.NewCollection[model.Color](db, "name")
	productCol := repository.NewCollection[model.Product](db, "name")
	voucherCol := repository.NewCollection[model.Voucher](db, "code")
	inventoryCol := repository.NewCollection[model.Inventory](db, "warehouse")
	permCol := repository.NewCollection[model.Permission](db, "name")

	categoryService := service.NewCategoryService(categoryRepo, notifier, auditService, log)
	roleService := service.NewRoleService(roleRepo, permCol, txManager, notifier, auditService, log)
	userService := service.NewUserService(userRepo, roleRepo)

	if err := roleService.SeedDefaultRolesAndPermissions(context.Background()); err != nil {
		log.Warn().Err(err).Msg("Failed to seed default roles and permissions")
	}

	brandLifecycle := service.NewLifecycle[model.Brand](model.KindBrand, brandCol, notifier, auditService, log)
	colorLifecycle := service.NewLifecycle[model.Color](model.KindColor, colorCol, notifier, auditService, log)
	productLifecycle := service.NewLifecycle[model.Product](model.KindProduct, productCol, notifier, auditService, log)
	voucherLifecycle := service.NewLifecycle[model.Voucher](model.KindVoucher, voucherCol, notifier, auditService, log)
	inventoryLifecycle := service.NewLifecycle[model.Inventory](model.KindInventory, inventoryCol, notifier, auditService, log)
	permissionLifecycle := service.NewLifecycle[model.Permission](model.KindPermission, permCol, notifier, auditService, log)

	// Initialize Handlers
	userHandler := handler.NewUserHandler(userService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	roleHandler := handler.NewRoleHandler(roleService)
	auditHandler := handler.NewAuditHandler(auditService)
	brandHandler := handler.NewLifecycleHandler(brandLifecycle, "brands", "brands.read", "brands.write")
	colorHandler := handler.NewLifecycleHandler(colorLifecycle, "colors", "colors.read", "colors.write")
	productHandler := handler.NewLifecycleHandler(productLifecycle, "products", "products.read", "products.write")
	voucherHandler := handler.NewLifecycleHandler(voucherLifecycle, "vouchers", "vouchers.read", "vouchers.write")
	inventoryHandler := handler.NewLifecycleHandler(inventoryLifecycle, "inventories", "inventories.read", "inventories.write")
	// permission codes are seeded at startup, not created over HTTP
	permissionHandler := handler.NewLifecycleHandler(permissionLifecycle, "permissions", "roles.manage", "roles.manage").DisableCreate()

	// Set up Gin Router
	router := gin.New()
	router.Use(middleware.RequestLogger(log), gin.Recovery())

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.HTTP.AllowedOrigins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	// WebSocket endpoint
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c, middleware.GetJWTSecret())
	})

	// Register API Routes
	root := router.Group("")
	userHandler.RegisterRoutes(root)
	categoryHandler.RegisterRoutes(root)
	roleHandler.RegisterRoutes(root)
	auditHandler.RegisterRoutes(root)
	brandHandler.RegisterRoutes(root)
	colorHandler.RegisterRoutes(root)
	productHandler.RegisterRoutes(root)
	voucherHandler.RegisterRoutes(root)
	inventoryHandler.RegisterRoutes(root)
	permissionHandler.RegisterRoutes(root)

	log.Info().Str("port", cfg.HTTP.Port).Msg("Server listening")
	if err := router.Run(":" + cfg.HTTP.Port); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
