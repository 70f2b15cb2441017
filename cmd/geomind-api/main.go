package main

import (
	"context"
	"log"
	"net/http"

	"github.com/geomind-labs/geomind-agent/internal/adapters/catalog"
	httpadapter "github.com/geomind-labs/geomind-agent/internal/adapters/http"
	"github.com/geomind-labs/geomind-agent/internal/adapters/llm"
	firestorestore "github.com/geomind-labs/geomind-agent/internal/adapters/storage/firestore"
	memstore "github.com/geomind-labs/geomind-agent/internal/adapters/storage/memory"
	"github.com/geomind-labs/geomind-agent/internal/app/agentflow"
	"github.com/geomind-labs/geomind-agent/internal/app/mission"
	"github.com/geomind-labs/geomind-agent/internal/app/stream"
	"github.com/geomind-labs/geomind-agent/internal/app/tools"
	"github.com/geomind-labs/geomind-agent/internal/config"
	"github.com/geomind-labs/geomind-agent/internal/domain"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()

	// Model gateway: mock for local dev, Gemini otherwise.
	var (
		gateway domain.ModelGateway
		err     error
	)
	if cfg.UseMockLLM {
		log.Println("[LLM] Using mock gateway")
		gateway = llm.NewMockGateway()
	} else {
		log.Printf("[LLM] Using Gemini gateway (model=%s)", cfg.ModelName)
		gateway, err = llm.NewGeminiGateway(ctx, llm.GeminiConfig{
			APIKey:    cfg.APIKey,
			ProjectID: cfg.GCPProjectID,
			Location:  cfg.GCPLocation,
			ModelName: cfg.ModelName,
			Timeout:   cfg.GatewayTimeout,
		})
		if err != nil {
			log.Fatalf("error initializing Gemini gateway: %v", err)
		}
	}

	// Storage: Firestore or Memory
	var sessionStore domain.SessionStore
	var messageStore domain.MessageStore

	switch cfg.StorageBackend {
	case "firestore":
		log.Printf("[STORE] Using Firestore storage (project=%s)", cfg.GCPProjectID)
		fsStore, err := firestorestore.NewStore(ctx, cfg.GCPProjectID)
		if err != nil {
			log.Fatalf("error initializing Firestore store: %v", err)
		}

		// 1 store, implements 2 interfaces
		sessionStore = fsStore
		messageStore = fsStore

	default:
		log.Println("[STORE] Using in-memory storage")
		sessionStore = memstore.NewSessionStore()
		messageStore = memstore.NewMessageStore()
	}

	bus := stream.NewBus(cfg.EventBufferSize)
	datasetTool := tools.NewDatasetTool(catalog.NewStatic())

	orch := agentflow.NewDefaultOrchestrator(gateway, datasetTool, bus)
	chat := agentflow.NewChatAgent(gateway, bus)
	svc := mission.NewService(sessionStore, messageStore, orch, chat)

	handler := httpadapter.NewServer(svc, bus)

	addr := ":" + cfg.Port
	log.Println("GeoMind API listening on", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatal(err)
	}
}
