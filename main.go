package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/hdbfolio/backend/src/config"
	"github.com/username/hdbfolio/backend/src/database"
	"github.com/username/hdbfolio/backend/src/handlers"
	"github.com/username/hdbfolio/backend/src/llm"
	"github.com/username/hdbfolio/backend/src/logger"
	"github.com/username/hdbfolio/backend/src/predictor"
	"github.com/username/hdbfolio/backend/src/services"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel, config.Cfg.LogFormat)
	logger.L.Info("HDBfolio backend server starting...")

	if config.Cfg.AnthropicAPIKey == "" {
		logger.L.Error("ANTHROPIC_API_KEY is not set. Set it in the .env file or in the environment variables.")
		os.Exit(1)
	}

	logger.L.Info("Loading model artifact...", "path", config.Cfg.ModelArtifactPath)
	model, err := predictor.LoadModel(config.Cfg.ModelArtifactPath)
	if err != nil {
		logger.L.Error("Failed to load model artifact. Run the ingest pipeline and train the model first.", "error", err)
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing result cache...")
	resultCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	logger.L.Info("Initializing services and handlers...")
	llmClient := llm.NewClient(config.Cfg.AnthropicBaseURL, config.Cfg.AnthropicAPIKey, 2*time.Minute)

	queryService := services.NewQueryService(llmClient, database.DB, config.Cfg.AnthropicModel, resultCache)
	predictService := services.NewPredictService(model, resultCache)
	askService := services.NewAskService(llmClient, queryService, predictService, config.Cfg.AnthropicModel, config.Cfg.LLMMaxTokens)

	predictHandler := handlers.NewPredictHandler(predictService)
	queryHandler := handlers.NewQueryHandler(queryService, askService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("GET /api/health", handlers.HandleHealth)
	apiRouter.HandleFunc("POST /api/predict", predictHandler.HandlePredict)
	apiRouter.HandleFunc("POST /api/query", queryHandler.HandleQuery)
	apiRouter.HandleFunc("POST /api/ask", queryHandler.HandleAsk)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message": "Welcome to the HDB Price Analysis API",
				"endpoints": map[string]string{
					"/api/ask":     "Ask a question about HDB prices and data (streaming response)",
					"/api/query":   "Query the database with natural language",
					"/api/predict": "Predict HDB resale price for given property attributes",
				},
			})
		} else {
			if !strings.HasPrefix(r.URL.Path, "/api/") {
				logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
				http.NotFound(w, r)
			}
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rootMux)

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:        serverAddr,
		Handler:     finalHandler,
		ReadTimeout: 15 * time.Second,
		// Ask streams SSE for up to ten LLM round trips; keep writes open long enough.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
