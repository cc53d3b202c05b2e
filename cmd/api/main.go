package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-pedidos-api/internal/handler"
	"go-pedidos-api/internal/middleware"
	"go-pedidos-api/internal/model"
	"go-pedidos-api/internal/repository"
	"go-pedidos-api/internal/service"
	"go-pedidos-api/internal/ws"
	"go-pedidos-api/pkg/cache"
	"go-pedidos-api/pkg/database"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	// 2. Setup Database
	db := database.ConnectDB()
	// Auto Migrate (Hati-hati di production, sebaiknya pakai tools migrasi terpisah)
	db.AutoMigrate(
		&model.Product{}, &model.ComboItem{}, &model.StockMovement{},
		&model.Client{}, &model.Order{}, &model.OrderItem{},
		&model.User{}, &model.Privilege{}, &model.Role{},
	)

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(db)

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub()
	go wsHub.Run()

	// 5. Cache (Redis when configured, otherwise pass-through)
	var cacheStore cache.Store
	if redisStore, err := cache.NewRedisStore(); err != nil {
		log.Printf("Warning: cache disabled: %v", err)
		cacheStore = cache.NewNoop()
	} else {
		cacheStore = redisStore
		defer redisStore.Close()
	}

	// 6. Dependency Injection (Wiring Layers)
	productRepo := repository.NewProductRepo(db)
	orderRepo := repository.NewOrderRepo(db)
	clientRepo := repository.NewClientRepo(db)
	movementRepo := repository.NewMovementRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	txRunner := repository.NewTxRunner(db)

	catalogService := service.NewCatalogService(productRepo, cacheStore, wsHub)
	stockService := service.NewStockService(txRunner, cacheStore, wsHub)
	orderService := service.NewOrderService(orderRepo, clientRepo, catalogService, stockService, txRunner, cacheStore, wsHub)
	clientService := service.NewClientService(clientRepo, orderRepo)
	dashService := service.NewDashboardService(movementRepo)
	authService := service.NewAuthService(userRepo, wsHub)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)

	productHandler := handler.NewProductHandler(catalogService, stockService)
	orderHandler := handler.NewOrderHandler(orderService)
	clientHandler := handler.NewClientHandler(clientService)
	movementHandler := handler.NewMovementHandler(movementRepo)
	dashHandler := handler.NewDashboardHandler(dashService)
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	roleHandler := handler.NewRoleHandler(roleRepo)

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName: "Pedidos API v1.0",
	})

	// Middleware
	app.Use(logger.New())  // Logging request
	app.Use(recover.New()) // Panic recovery
	app.Use(cors.New())    // CORS

	// 8. Routes
	api := app.Group("/api/v1")

	// ============ PUBLIC ROUTES ============
	auth := api.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/reset-password", authHandler.ResetPassword)
	auth.Post("/validate-token", authHandler.ValidateToken)
	auth.Post("/heartbeat", middleware.RequireAuth(userRepo), authHandler.Heartbeat)

	// ============ PROTECTED ROUTES ============
	protected := api.Group("", middleware.RequireAuth(userRepo))

	// Dashboard Routes
	protected.Get("/dashboard/stats", dashHandler.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", dashHandler.GetStockMovement)
	protected.Get("/dashboard/top-sold", dashHandler.GetTopSold)

	// Product / Catalog Routes
	protected.Get("/products", productHandler.GetProducts)
	protected.Get("/products/:id", productHandler.GetProduct)
	protected.Get("/products/:id/combo", productHandler.GetComboExpansion)
	protected.Get("/products/:id/movements", movementHandler.GetProductMovements)
	protected.Post("/products", middleware.RequirePrivilege("product:create"), productHandler.CreateProduct)
	protected.Put("/products/:id", middleware.RequirePrivilege("product:update"), productHandler.UpdateProduct)
	protected.Delete("/products/:id", middleware.RequirePrivilege("product:delete"), productHandler.DeleteProduct)

	// Point-of-sale stock operations
	protected.Post("/products/:id/sell", middleware.RequirePrivilege("stock:sell"), productHandler.Sell)
	protected.Post("/products/:id/cancel-sale", middleware.RequirePrivilege("stock:cancel"), productHandler.CancelSale)
	protected.Post("/products/:id/adjust", middleware.RequirePrivilege("stock:adjust"), productHandler.AdjustStock)

	// Order Routes
	protected.Get("/orders", middleware.RequirePrivilege("order:view"), orderHandler.GetOrders)
	protected.Get("/orders/:id", middleware.RequirePrivilege("order:view"), orderHandler.GetOrder)
	protected.Get("/orders/:id/snapshot", middleware.RequirePrivilege("order:view"), orderHandler.GetOrderSnapshot)
	protected.Get("/orders/:id/movements", middleware.RequirePrivilege("order:view"), movementHandler.GetOrderMovements)
	protected.Post("/orders", middleware.RequirePrivilege("order:create"), orderHandler.CreateOrder)
	protected.Put("/orders/:id", middleware.RequirePrivilege("order:update"), orderHandler.UpdateOrder)
	protected.Delete("/orders/:id", middleware.RequirePrivilege("order:delete"), orderHandler.DeleteOrder)

	// Client Routes
	protected.Get("/clients", middleware.RequirePrivilege("client:view"), clientHandler.GetClients)
	protected.Get("/clients/:id", middleware.RequirePrivilege("client:view"), clientHandler.GetClient)
	protected.Post("/clients", middleware.RequirePrivilege("client:create"), clientHandler.CreateClient)
	protected.Put("/clients/:id", middleware.RequirePrivilege("client:update"), clientHandler.UpdateClient)
	protected.Delete("/clients/:id", middleware.RequirePrivilege("client:delete"), clientHandler.DeleteClient)

	// Movement audit trail
	protected.Get("/movements", middleware.RequirePrivilege("dashboard:view"), movementHandler.GetMovements)

	// User Management Routes
	protected.Get("/users", userHandler.GetUsers)
	protected.Get("/users/:id", userHandler.GetUser)
	protected.Post("/users", middleware.RequirePrivilege("user:create"), userHandler.CreateUser)
	protected.Put("/users/:id", middleware.RequirePrivilege("user:update"), userHandler.UpdateUser)
	protected.Delete("/users/:id", middleware.RequirePrivilege("user:delete"), userHandler.DeleteUser)
	protected.Put("/users/:id/privileges", middleware.RequirePrivilege("user:update_privilege"), userHandler.UpdateUserPrivileges)

	// Role Routes
	protected.Get("/roles", roleHandler.GetRoles)

	// Privileges Route (list all available privileges)
	protected.Get("/privileges", func(c *fiber.Ctx) error {
		privileges, err := privilegeRepo.FindAll()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch privileges"})
		}
		return c.JSON(privileges)
	})

	// WebSocket Route
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return c.SendStatus(fiber.StatusUpgradeRequired)
	})
	app.Get("/ws", websocket.New(func(c *websocket.Conn) {
		wsHub.Register <- c
		defer func() { wsHub.Unregister <- c }()

		for {
			// Keep alive loop
			if _, _, err := c.ReadMessage(); err != nil {
				break
			}
		}
	}))

	// 9. Graceful Shutdown
	go func() {
		port := os.Getenv("PORT")
		if port == "" {
			port = "3000"
		}
		if err := app.Listen(":" + port); err != nil {
			log.Panic(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and admin user if they don't exist
func seedPrivilegesRolesAndAdmin(db *gorm.DB) {
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed privileges: %v", err)
	}

	// 2. Seed roles
	if err := roleRepo.SeedDefaults(); err != nil {
		log.Printf("Warning: Failed to seed roles: %v", err)
	}

	// 3. Assign privileges to roles
	allPrivileges, _ := privilegeRepo.FindAll()

	assign := func(code string, filter func(p model.Privilege) bool) {
		role, err := roleRepo.FindByCode(code)
		if err != nil || len(role.Privileges) > 0 {
			return
		}
		selected := []model.Privilege{}
		for _, p := range allPrivileges {
			if filter(p) {
				selected = append(selected, p)
			}
		}
		db.Model(&role).Association("Privileges").Replace(selected)
		log.Printf("Role %s assigned %d privileges", code, len(selected))
	}

	isUserMgmt := func(code string) bool {
		return code == "user:create" || code == "user:update" || code == "user:delete" || code == "user:update_privilege"
	}
	isView := func(code string) bool {
		switch code {
		case "product:view", "order:view", "client:view", "dashboard:view", "user:view":
			return true
		}
		return false
	}

	// MASTER_ADMIN gets ALL privileges
	assign(model.RoleMasterAdmin, func(p model.Privilege) bool { return true })

	// ADMIN gets everything except user management
	assign(model.RoleAdmin, func(p model.Privilege) bool { return !isUserMgmt(p.Code) })

	// SUPERVISOR manages orders and clients plus all views
	assign(model.RoleSupervisor, func(p model.Privilege) bool {
		switch p.Code {
		case "order:create", "order:update", "order:delete",
			"client:create", "client:update", "client:delete",
			"stock:adjust":
			return true
		}
		return isView(p.Code)
	})

	// OPERATOR is read-only plus point-of-sale
	assign(model.RoleOperator, func(p model.Privilege) bool {
		return p.Code == "stock:sell" || p.Code == "stock:cancel" || isView(p.Code)
	})

	// 4. Create default admin user with MASTER_ADMIN role
	if _, err := userRepo.FindByEmail("admin@example.com"); err != nil {
		masterRole, _ := roleRepo.FindByCode(model.RoleMasterAdmin)

		admin := &model.User{
			Email:       "admin@example.com",
			FullName:    "Master Administrator",
			PhoneNumber: "",
			RoleID:      &masterRole.ID,
			IsActive:    true,
			Privileges:  masterRole.Privileges,
		}
		admin.CreatedBy = "system"
		admin.UpdatedBy = "system"

		if err := admin.SetPassword("admin123"); err != nil {
			log.Printf("Warning: Failed to hash admin password: %v", err)
			return
		}

		if err := userRepo.Create(admin); err != nil {
			log.Printf("Warning: Failed to create admin user: %v", err)
		} else {
			log.Println("Admin user created: admin@example.com / admin123 (MASTER_ADMIN)")
		}
	}
}
