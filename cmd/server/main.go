package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"intellimind/internal/asr"
	"intellimind/internal/chunking"
	"intellimind/internal/handlers"
	"intellimind/internal/ingestion"
	"intellimind/internal/insights"
	"intellimind/internal/storage"
	"intellimind/internal/transcription"
	"intellimind/internal/version"
	"intellimind/internal/youtube"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	port := getenv("PORT", "8080")
	dataDir := getenv("DATA_DIR", "data")
	dbPath := getenv("DB_PATH", filepath.Join(dataDir, "intellimind.db"))
	modelsDir := getenv("MODELS_DIR", "models")
	defaultModel := os.Getenv("ASR_MODEL")
	ollamaEndpoint := os.Getenv("OLLAMA_ENDPOINT")
	ollamaModel := getenv("OLLAMA_MODEL", "llama3.2:latest")

	db, err := storage.Open(dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	meetingRepo := storage.NewMeetingRepository(db)
	transcriptRepo := storage.NewTranscriptRepository(db)
	insightRepo := storage.NewInsightRepository(db)

	pool := asr.NewPool(modelsDir, defaultModel)
	defer pool.Close()

	segmenter := chunking.NewChunker(chunking.DefaultConfig())
	manager := transcription.NewManager(
		transcription.DefaultConfig(),
		segmenter,
		func(modelID string) (transcription.SegmentTranscriber, error) {
			return pool.Get(modelID)
		},
		filepath.Join(dataDir, "chunks"),
	)
	defer manager.Shutdown()

	var generator *insights.Generator
	if ollamaEndpoint != "" {
		generator = insights.NewGenerator(ollamaEndpoint, ollamaModel)
	}

	ingester := ingestion.NewIngester(meetingRepo, transcriptRepo, manager, youtube.NewClient(), dataDir)
	meetingHandler := handlers.NewMeetingHandler(ingester, manager, meetingRepo, transcriptRepo, insightRepo, generator)

	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"version": version.Version,
		})
	})

	api := e.Group("/api")
	api.POST("/meetings", meetingHandler.Upload)
	api.POST("/meetings/url", meetingHandler.UploadURL)
	api.GET("/meetings", meetingHandler.List)
	api.GET("/meetings/:id", meetingHandler.Get)
	api.DELETE("/meetings/:id", meetingHandler.Delete)
	api.GET("/meetings/:id/progress", meetingHandler.Progress)
	api.POST("/meetings/:id/stop", meetingHandler.Stop)
	api.GET("/meetings/:id/transcript", meetingHandler.Transcript)
	api.POST("/meetings/:id/insights", meetingHandler.GenerateInsight)
	api.GET("/meetings/:id/insights", meetingHandler.ListInsights)

	log.Printf("Starting IntelliMind v%s on port %s", version.Version, port)
	if err := e.Start(fmt.Sprintf(":%s", port)); err != nil {
		log.Fatal(err)
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
