package main

import (
	"context"
	"log"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	pubnub "github.com/pubnub/go"

	"salonq/config"
	"salonq/handlers"
	_ "salonq/migrations"
	"salonq/monitoring"
	"salonq/security"
	"salonq/services"
	"salonq/utils"
)

func main() {
	app := pocketbase.New()

	// Load configuration
	cfg := config.LoadConfig()

	// Initialize Redis
	redisClient := utils.NewRedisClient(cfg.RedisURL, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()

	// Initialize PubNub
	pnConfig := pubnub.NewConfig()
	pnConfig.PublishKey = cfg.PubNubPublishKey
	pnConfig.SubscribeKey = cfg.PubNubSubscribeKey
	pnConfig.SecretKey = cfg.PubNubSecretKey

	pn := pubnub.NewPubNub(pnConfig)

	// Broadcast pipeline: in-process hub plus the PubNub relay
	hub := services.NewHub(cfg.BroadcastBuffer)
	relay := services.NewPubNubRelay(pn, 4*cfg.BroadcastBuffer)
	broadcaster := services.MultiBroadcast(hub, relay)

	cache := services.NewSnapshotCache(redisClient, cfg.SnapshotTTL)

	// Initialize services
	store := services.NewRecordQueueStore(app)
	catalog := services.NewRecordCatalog(app)
	loyalty := services.NewRecordLoyaltyLedger(app)
	queueService := services.NewQueueService(store, catalog, loyalty, broadcaster, cache, cfg.DefaultServiceDuration)
	analyticsService := services.NewAnalyticsService(store, catalog)

	// Initialize handlers
	queueHandler := handlers.NewQueueHandler(app, queueService)
	analyticsHandler := handlers.NewAnalyticsHandler(app, analyticsService, catalog)
	verifyHandler := handlers.NewVerifyHandler(app, cfg)

	rateLimiter := security.NewRateLimiter(redisClient, cfg.JoinRateLimit, cfg.JoinRateWindow)

	// Enable migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: cfg.Environment == "development",
	})

	var metricsServer *monitoring.MetricsServer
	if cfg.EnableMetrics {
		metricsServer = monitoring.StartMetricsServer(cfg.MetricsPort, func() error {
			return utils.RedisHealthCheck(redisClient)
		})
	}

	// Register routes
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		// Queue endpoints
		se.Router.POST("/api/queues", queueHandler.Join).BindFunc(rateLimiter.QueueRateLimit())
		se.Router.GET("/api/queues/my", queueHandler.MyEntries)
		se.Router.DELETE("/api/queues/{id}", queueHandler.Leave)
		se.Router.POST("/api/queues/{id}/advance", queueHandler.Advance)
		se.Router.POST("/api/queues/{id}/complete", queueHandler.Complete)
		se.Router.POST("/api/queues/{id}/no-show", queueHandler.MarkNoShow)

		// Salon queue views
		se.Router.GET("/api/salons/{salonId}/queue", queueHandler.WaitingList)
		se.Router.GET("/api/salons/{salonId}/queue/position", queueHandler.Position)

		// Owner dashboard
		se.Router.GET("/api/analytics/{salonId}", analyticsHandler.SalonAnalytics)

		// Account verification
		se.Router.POST("/api/verify/request", verifyHandler.RequestOTP)
		se.Router.POST("/api/verify/confirm", verifyHandler.ConfirmOTP)

		// Health check
		se.Router.GET("/health", func(e *core.RequestEvent) error {
			if err := utils.RedisHealthCheck(redisClient); err != nil {
				return e.JSON(503, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
			}
			return e.JSON(200, map[string]string{"status": "healthy"})
		})

		// Warm the snapshot cache for salons with live queues
		go warmSnapshots(store, queueService)

		log.Println("Server routes registered")

		return se.Next()
	})

	// Stop background workers when the server goes down
	app.OnTerminate().BindFunc(func(te *core.TerminateEvent) error {
		relay.Shutdown()
		hub.Close()
		if metricsServer != nil {
			metricsServer.Shutdown()
		}
		return te.Next()
	})

	// Start server
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// warmSnapshots rebuilds the Redis snapshots after a restart so position
// polls are answered from cache right away.
func warmSnapshots(store *services.RecordQueueStore, queueService *services.QueueService) {
	ctx := context.Background()

	salonIDs, err := store.WaitingSalons(ctx)
	if err != nil {
		log.Printf("Error listing salons with live queues: %v", err)
		return
	}
	if len(salonIDs) == 0 {
		return
	}

	log.Printf("Warming queue snapshots for %d salons", len(salonIDs))
	queueService.WarmSnapshots(ctx, salonIDs)
}
