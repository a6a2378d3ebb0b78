package main

import (
	"database/sql"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"motorent/internal/api"
	"motorent/internal/auth"
	"motorent/internal/config"
	"motorent/internal/repository"
	"motorent/internal/service"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}

	vehicleRepo := repository.NewVehicleRepository(database)
	lockRepo := repository.NewLockRepository(database)
	orderRepo := repository.NewOrderRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	settlementRepo := repository.NewSettlementRepository(database)
	jobRepo := repository.NewJobRepository(database)
	staffAuthRepo := repository.NewStaffAuthRepository(database)

	gateway := service.NewStripeService(cfg)
	trust := service.NewTrustScoreClient(cfg.TrustScoreURL)
	sender := service.NewSenderService()

	availabilitySvc := service.NewAvailabilityService(database, orderRepo, lockRepo)
	lockSvc := service.NewLockService(database, lockRepo, vehicleRepo, availabilitySvc, cfg)
	settlementSvc := service.NewSettlementService(database, settlementRepo, orderRepo, paymentRepo, gateway, cfg)
	orderSvc := service.NewOrderService(database, orderRepo, paymentRepo, vehicleRepo, lockSvc, availabilitySvc, settlementSvc, gateway, trust, sender, cfg)
	paymentSvc := service.NewPaymentService(database, paymentRepo, orderRepo, settlementRepo, orderSvc, gateway)
	jobSvc := service.NewJobService(jobRepo, orderRepo, lockSvc)
	staffAuthSvc := service.NewStaffAuthService(staffAuthRepo, cfg.JWTSecret)

	userHandler := api.NewUserHandler(availabilitySvc, lockSvc, orderSvc, settlementSvc)
	staffHandler := api.NewStaffHandler(orderSvc, settlementSvc, availabilitySvc)
	staffAuthHandler := api.NewStaffAuthHandler(staffAuthSvc)
	webhookHandler := api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentSvc)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/availability", userHandler.CheckAvailability).Methods("POST")
	r.HandleFunc("/api/locks", userHandler.AcquireLock).Methods("POST")
	r.HandleFunc("/api/locks/{token}", userHandler.ReleaseLock).Methods("DELETE")
	r.HandleFunc("/api/orders", userHandler.CreateOrder).Methods("POST")
	r.HandleFunc("/api/orders/{code}", userHandler.GetOrder).Methods("GET")
	r.HandleFunc("/api/orders/{code}/settlement", userHandler.GetSettlement).Methods("GET")
	r.HandleFunc("/api/webhooks/stripe", webhookHandler.HandleWebhook).Methods("POST")

	// Staff endpoints (protected)
	r.HandleFunc("/staff/login", staffAuthHandler.Login).Methods("POST")
	staff := r.PathPrefix("/staff").Subrouter()
	staff.Use(auth.StaffAuthMiddleware(cfg.JWTSecret))
	staff.HandleFunc("/availability/conflicts", staffHandler.VehicleConflicts).Methods("POST")
	staff.HandleFunc("/orders", staffHandler.ListOrders).Methods("GET")
	staff.HandleFunc("/orders/{code}/handover", staffHandler.Handover).Methods("POST")
	staff.HandleFunc("/orders/{code}/return", staffHandler.Return).Methods("POST")
	staff.HandleFunc("/orders/{code}/cancel", staffHandler.CancelOrder).Methods("POST")
	staff.HandleFunc("/orders/{code}/settlement", staffHandler.GetSettlement).Methods("GET")
	staff.HandleFunc("/orders/{code}/settlement/damages", staffHandler.AddDamageCharge).Methods("POST")
	staff.HandleFunc("/orders/{code}/settlement/finalize", staffHandler.FinalizeSettlement).Methods("POST")
	staff.HandleFunc("/orders/{code}/settlement/refund", staffHandler.MarkRefund).Methods("POST")
	staff.HandleFunc("/orders/{code}/settlement/additional-payment", staffHandler.CreateAdditionalPayment).Methods("POST")
	staff.HandleFunc("/accounts", staffAuthHandler.CreateStaffAccount).Methods("POST")

	c := cron.New()
	if _, err := c.AddFunc("@every 1m", func() {
		if err := jobSvc.SweepExpiredLocks(); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
		if err := jobSvc.ExpirePendingOrders(); err != nil {
			log.Printf("Cron Job error: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule cron jobs: %v", err)
	}
	c.Start()
	defer c.Stop()

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Stripe-Signature"}),
	)

	log.Printf("Server running on port %s", cfg.Port)
	log.Fatal(http.ListenAndServe(":"+cfg.Port, handlers.LoggingHandler(logWriter{}, cors(r))))
}

type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	log.Printf("%s", p)
	return len(p), nil
}
