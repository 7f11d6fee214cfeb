package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chachabrian/fleetshare-backend/internal/config"
	"github.com/chachabrian/fleetshare-backend/internal/database"
	"github.com/chachabrian/fleetshare-backend/internal/handlers"
	"github.com/chachabrian/fleetshare-backend/internal/middleware"
	"github.com/chachabrian/fleetshare-backend/internal/models"
	"github.com/chachabrian/fleetshare-backend/internal/repository"
	"github.com/chachabrian/fleetshare-backend/internal/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := database.RunMigrations(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	users := repository.NewUserRepository(db)
	stores := services.Stores{
		Users:          users,
		Drivers:        repository.NewDriverRepository(db),
		Vehicles:       repository.NewVehicleRepository(db),
		Bookings:       repository.NewBookingRepository(db),
		Payments:       repository.NewPaymentRepository(db),
		Feedback:       repository.NewFeedbackRepository(db),
		Maintenance:    repository.NewMaintenanceRepository(db),
		Tools:          repository.NewToolRepository(db),
		BorrowRequests: repository.NewBorrowRequestRepository(db),
		Reviews:        repository.NewReviewRepository(db),
	}

	hub := services.NewHub()
	go hub.Run(ctx)
	fanout := services.NewFanout(hub)

	deps := services.Deps{
		Stores:   stores,
		Tx:       database.NewTransactor(db),
		Notifier: fanout,
		Pricing:  cfg.Pricing,
	}

	// Redis backs the rating cache and the update channel; both are optional.
	if rdb, err := services.InitRedis(ctx, cfg.RedisURL); err != nil {
		log.Printf("Redis disabled: %v", err)
	} else {
		defer rdb.Close()
		deps.Cache = services.NewRedisCache(rdb)
		fanout.Add(services.NewRedisPublisher(rdb))
	}

	if cfg.AMQPURL != "" {
		pub, err := services.DialAMQP(cfg.AMQPURL)
		if err != nil {
			log.Printf("RabbitMQ disabled: %v", err)
		} else {
			defer pub.Close()
			fanout.Add(pub)
		}
	}

	fcm, err := services.InitFirebase(ctx, cfg.Firebase.ServiceAccountPath)
	if err != nil {
		log.Printf("Firebase initialization warning: %v", err)
	} else if fcm != nil {
		fanout.Add(services.NewPushNotifier(fcm, users))
	}

	if cfg.Email.Enabled() {
		fanout.Add(services.NewEmailNotifier(cfg.Email, users))
	}
	if cfg.SMS.Enabled() {
		fanout.Add(services.NewSMSNotifier(cfg.SMS, users))
	}

	images, err := services.NewImageStore(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	assign := services.NewAssignmentService(deps)
	authSvc := services.NewAuthService(users, cfg.JWT.Secret)
	userSvc := services.NewUserService(users)
	fleet := services.NewFleetService(deps)
	maint := services.NewMaintenanceService(deps)
	bookings := services.NewBookingService(deps, assign)
	feedback := services.NewFeedbackService(deps)
	tools := services.NewToolService(deps, images)
	rentals := services.NewRentalService(deps)
	reviews := services.NewReviewService(deps)
	payments := services.NewPaymentService(deps)

	r := gin.Default()
	r.Use(middleware.RequestID())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"*"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"}
	corsCfg.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	r.Use(cors.New(corsCfg))

	if !cfg.Storage.UseS3() {
		r.Static("/uploads", cfg.Storage.UploadDir)
	}

	admin := middleware.RequireRole(string(models.RoleAdmin))

	api := r.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.Register(authSvc))
			auth.POST("/login", handlers.Login(authSvc))
		}

		api.GET("/ws", middleware.AuthMiddleware(cfg.JWT.Secret), handlers.WebSocketHandler(hub))

		protected := api.Group("/")
		protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
		{
			userRoutes := protected.Group("/users")
			{
				userRoutes.GET("/profile", handlers.GetProfile(userSvc))
				userRoutes.PUT("/profile", handlers.UpdateProfile(userSvc))
				userRoutes.POST("/fcm-token", handlers.RegisterFCMToken(userSvc))
				userRoutes.PATCH("/:id/active", admin, handlers.SetUserActive(userSvc))
				userRoutes.GET("/:id/rating", handlers.GetUserRating(reviews))
			}

			fleetRoutes := protected.Group("/fleet")
			{
				fleetRoutes.GET("/estimate", handlers.EstimateFare(fleet, cfg.Pricing))

				drivers := fleetRoutes.Group("/drivers")
				{
					drivers.POST("", handlers.RegisterDriver(fleet))
					drivers.GET("", handlers.ListDrivers(fleet))
					drivers.GET("/candidates", handlers.ListCandidates(assign))
					drivers.GET("/:id", handlers.GetDriver(fleet))
					drivers.PATCH("/:id/status", handlers.UpdateDriverStatus(fleet))
					drivers.POST("/:id/location", handlers.UpdateDriverLocation(fleet))
					drivers.DELETE("/:id", admin, handlers.DeleteDriver(fleet))
					drivers.GET("/:id/rating", handlers.GetDriverRating(feedback))
					drivers.GET("/:id/feedback", handlers.ListDriverFeedback(feedback))
					drivers.GET("/:id/workload", handlers.GetDriverWorkload(fleet, assign))
				}

				vehicles := fleetRoutes.Group("/vehicles")
				{
					vehicles.GET("", handlers.ListVehicles(fleet))
					vehicles.GET("/:id", handlers.GetVehicle(fleet))
					vehicles.GET("/:id/maintenance", handlers.ListVehicleMaintenance(maint))
					vehicles.POST("", admin, handlers.AddVehicle(fleet))
					vehicles.PUT("/:id", admin, handlers.UpdateVehicle(fleet))
					vehicles.PATCH("/:id/status", admin, handlers.UpdateVehicleStatus(fleet))
					vehicles.DELETE("/:id", admin, handlers.DeleteVehicle(fleet))
				}

				maintenance := fleetRoutes.Group("/maintenance", admin)
				{
					maintenance.POST("", handlers.ScheduleMaintenance(maint))
					maintenance.GET("/due", handlers.DueMaintenance(maint))
					maintenance.POST("/:id/start", handlers.StartMaintenance(maint))
					maintenance.POST("/:id/complete", handlers.CompleteMaintenance(maint))
					maintenance.POST("/:id/cancel", handlers.CancelMaintenance(maint))
				}

				bookingRoutes := fleetRoutes.Group("/bookings")
				{
					bookingRoutes.POST("", handlers.CreateBooking(bookings))
					bookingRoutes.GET("", handlers.ListBookings(bookings))
					bookingRoutes.POST("/rebalance", admin, handlers.RebalanceBookings(assign))
					bookingRoutes.GET("/:id", handlers.GetBooking(bookings))
					bookingRoutes.POST("/:id/assign", handlers.AssignBooking(bookings))
					bookingRoutes.PATCH("/:id/status", handlers.UpdateBookingStatus(bookings))
					bookingRoutes.POST("/:id/feedback", handlers.SubmitFeedback(feedback))
					bookingRoutes.DELETE("/:id", admin, handlers.DeleteBooking(bookings))
				}
			}

			rentalRoutes := protected.Group("/rentals")
			{
				toolRoutes := rentalRoutes.Group("/tools")
				{
					toolRoutes.POST("", handlers.CreateTool(tools))
					toolRoutes.GET("", handlers.ListTools(tools))
					toolRoutes.GET("/:id", handlers.GetTool(tools))
					toolRoutes.PUT("/:id", handlers.UpdateTool(tools))
					toolRoutes.PATCH("/:id/status", handlers.UpdateToolStatus(tools))
					toolRoutes.DELETE("/:id", handlers.DeleteTool(tools))
					toolRoutes.POST("/:id/image", handlers.UploadToolImage(tools))
					toolRoutes.GET("/:id/estimate", handlers.EstimateRental(tools))
					toolRoutes.GET("/:id/reviews", handlers.ListToolReviews(reviews))
					toolRoutes.GET("/:id/rating", handlers.GetToolRating(reviews))
				}

				requests := rentalRoutes.Group("/requests")
				{
					requests.POST("", handlers.CreateBorrowRequest(rentals))
					requests.GET("", handlers.ListBorrowRequests(rentals))
					requests.GET("/overdue", handlers.ListOverdue(rentals))
					requests.GET("/:id", handlers.GetBorrowRequest(rentals))
					requests.PATCH("/:id/status", handlers.UpdateBorrowRequestStatus(rentals))
					requests.POST("/:id/review", handlers.SubmitReview(reviews))
					requests.DELETE("/:id", admin, handlers.DeleteBorrowRequest(rentals))
				}
			}

			paymentRoutes := protected.Group("/payments")
			{
				paymentRoutes.POST("", handlers.ProcessPayment(payments))
				paymentRoutes.GET("/:id", handlers.GetPayment(payments))
				paymentRoutes.GET("/:id/receipt", handlers.DownloadReceipt(payments))
				paymentRoutes.POST("/:id/refund", admin, handlers.RefundPayment(payments))
			}
		}
	}

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Printf("Listening on :%s", cfg.Port)

	<-ctx.Done()
	log.Println("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}
