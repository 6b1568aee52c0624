// cmd/server/main.go
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/aetherdial/dial-engine/internal/cache"
	"github.com/aetherdial/dial-engine/internal/db"
	"github.com/aetherdial/dial-engine/internal/dialer"
	"github.com/aetherdial/dial-engine/internal/engine"
	"github.com/aetherdial/dial-engine/internal/handler"
	"github.com/aetherdial/dial-engine/internal/queue"
	"github.com/aetherdial/dial-engine/internal/repository"
	"github.com/aetherdial/dial-engine/internal/service"
)

func main() {
	// Load .env
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	conn := db.Init()

	leadRepo := &repository.LeadRepository{DB: conn}
	agentRepo := &repository.AgentRepository{DB: conn}
	campaignRepo := &repository.CampaignRepository{DB: conn}

	var q queue.Queue
	if url := os.Getenv("AMQP_URL"); url != "" {
		amqpQueue, err := queue.NewAMQPQueue(url)
		if err != nil {
			log.Fatalf("failed to connect to RabbitMQ: %v", err)
		}
		defer amqpQueue.Close()
		q = amqpQueue
		log.Println("✅ Connected to RabbitMQ")
	} else {
		log.Println("⚠️ AMQP_URL not set, call events stay in-process")
		inmem := queue.NewInMemoryQueue()
		inmem.Subscribe(queue.TopicCallEvents, func(payload any) error {
			return nil // events are observable via snapshots; nothing to forward
		})
		q = inmem
	}

	var snapshotCache cache.Cache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err != nil {
			log.Fatalf("failed to connect to Redis: %v", err)
		}
		defer redisCache.Close()
		snapshotCache = redisCache
		log.Println("✅ Connected to Redis")
	} else {
		snapshotCache = cache.NewNoOpCache()
	}

	// TODO: swap MockDialer for the Vapi/Retell client once provider
	// credentials move out of the console.
	campaignService := service.NewCampaignService(
		campaignRepo,
		leadRepo,
		agentRepo,
		&dialer.MockDialer{},
		engine.SystemClock(),
		q,
		snapshotCache,
	)

	campaignHandler := handler.NewCampaignHandler(campaignService)
	leadHandler := &handler.LeadHandler{
		LeadRepo:  leadRepo,
		AgentRepo: agentRepo,
	}

	r := chi.NewRouter()

	// Campaign routes
	r.Post("/campaigns", campaignHandler.CreateCampaignHandler)
	r.Get("/campaigns", campaignHandler.ListCampaignsHandler)
	r.Get("/campaigns/{id}", campaignHandler.GetCampaignHandler)
	r.Put("/campaigns/{id}", campaignHandler.UpdateCampaignHandler)
	r.Post("/campaigns/{id}/start", campaignHandler.StartCampaignHandler)
	r.Post("/campaigns/{id}/pause", campaignHandler.PauseCampaignHandler)
	r.Post("/campaigns/{id}/resume", campaignHandler.ResumeCampaignHandler)
	r.Post("/campaigns/{id}/finish", campaignHandler.FinishCampaignHandler)
	r.Get("/campaigns/{id}/snapshot", campaignHandler.GetSnapshotHandler)

	// Lead / group / agent routes
	r.Get("/leads", leadHandler.ListLeadsHandler)
	r.Post("/leads", leadHandler.CreateLeadHandler)
	r.Get("/lead-groups", leadHandler.ListLeadGroupsHandler)
	r.Get("/agents", leadHandler.ListAgentsHandler)
	r.Get("/agents/{id}/stats", leadHandler.GetAgentStatsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Server running on :" + port)
	log.Fatal(http.ListenAndServe(":"+port, r))
}
