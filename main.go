package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	slackapi "github.com/slack-go/slack"

	"digestbot/internal/classify"
	"digestbot/internal/config"
	"digestbot/internal/digest"
	"digestbot/internal/httpx"
	"digestbot/internal/integrations/llm"
	slacksink "digestbot/internal/integrations/slack"
	"digestbot/internal/integrations/telegram"
	"digestbot/internal/schedule"
	"digestbot/internal/storage/sqlite"
	"digestbot/internal/tracker"
)

func main() {
	cfg := config.LoadConfig()

	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. ChatProvider=%s LLMProvider=%s Tracker=%s DefaultDigestTime=%s LookbackHours=%d HTTPTimeout=%s",
		cfg.ChatProvider, cfg.LLMProvider, cfg.TrackerAPIURL, cfg.DefaultDigestTime, cfg.DefaultLookbackHours, appliedHTTPTimeout)

	db, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()
	log.Printf("Database initialized at %s", cfg.DBPath)

	store := sqlite.NewStore(db)
	source := tracker.NewClient(cfg.TrackerAPIURL, cfg.TrackerToken, cfg.TrackerOrgID, cfg.TrackerCloudOrgID)

	var provider *llm.Provider
	switch cfg.LLMProvider {
	case "anthropic":
		provider = llm.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.LLMModel)
	case "ollama":
		provider = llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.LLMModel)
	default:
		log.Println("LLM disabled, using keyword classification and template summaries")
	}

	var backend classify.Backend
	var summarizer digest.Summarizer
	if provider != nil {
		backend = llm.NewStatusBackend(provider)
		summarizer = digest.NewLLMSummarizer(provider)
	}
	classifier := classify.New(backend, time.Duration(cfg.LLMTimeoutSeconds)*time.Second)

	var renderer digest.Renderer
	var sink schedule.Sink
	switch cfg.ChatProvider {
	case "slack":
		api := slackapi.New(cfg.SlackBotToken)
		renderer = slacksink.NewMrkdwnRenderer(cfg.TrackerWebURL)
		sink = slacksink.NewSink(api)
	default:
		renderer = telegram.NewHTMLRenderer(cfg.TrackerWebURL)
		sink = telegram.NewClient(cfg.TelegramBotToken)
	}

	generator := digest.NewGenerator(source, store, classifier, summarizer, renderer, cfg.TrackerWebURL)
	registry := schedule.NewRegistry(store, sink, generator, cfg.DefaultLookbackHours, cfg.DefaultDigestTime)

	if err := registry.Start(); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Println("Starting Queue Digest Bot...")
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	registry.Stop()
}
