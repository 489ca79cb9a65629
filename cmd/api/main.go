// Package main is the entry point for the API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/capitalize-ai/omnilead/internal/config"
	"github.com/capitalize-ai/omnilead/internal/handler"
	"github.com/capitalize-ai/omnilead/internal/llm"
	"github.com/capitalize-ai/omnilead/internal/model"
	natsclient "github.com/capitalize-ai/omnilead/internal/nats"
	"github.com/capitalize-ai/omnilead/internal/notify"
	"github.com/capitalize-ai/omnilead/internal/service"
	"github.com/capitalize-ai/omnilead/internal/store"
	"github.com/capitalize-ai/omnilead/pkg/logger"
	"github.com/capitalize-ai/omnilead/pkg/tracing"
)

func main() {
	cfg := config.Load()

	log, err := logger.NewForEnv(cfg.Environment, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	if err := cfg.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	log.Info("starting API server", zap.String("env", cfg.Environment))

	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "omnilead-api", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Database
	st, err := store.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to open database", zap.Error(err))
	}
	defer st.Close()

	if cfg.AutoMigrate {
		results, err := st.Migrate(ctx)
		if err != nil {
			log.Fatal("failed to migrate database", zap.Error(err))
		}
		log.Info("database migrated", zap.Int("applied", len(results)))
	}

	// Event stream is optional; without it the SSE endpoint is disabled.
	var (
		natsClient *natsclient.Client
		events     *natsclient.EventStream
		publisher  service.EventPublisher
		connCheck  handler.ConnChecker
	)
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			Name:     "omnilead-api",
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Warn("failed to connect to NATS, real-time events disabled", zap.Error(err))
		} else {
			defer natsClient.Close()
			events = natsclient.NewEventStream(natsClient)
			if err := events.EnsureStream(ctx); err != nil {
				log.Fatal("failed to ensure stream", zap.Error(err))
			}
			publisher = events
			connCheck = natsClient
		}
	}

	// Language model
	llmClient, modelName := newLLMClient(cfg, log)
	ai := service.NewAIService(llmClient, modelName, cfg.LLMTimeout, log)

	// Notifications
	dispatcher := notify.NewDispatcher(st, cfg.HighValueLeadMin, log)
	if cfg.PushAMQPURL != "" {
		push, err := notify.NewPushSender(cfg.PushAMQPURL, cfg.PushExchange)
		if err != nil {
			log.Warn("push notifications disabled", zap.Error(err))
		} else {
			defer push.Close()
			dispatcher.AddSender(push, notify.KindEscalation, notify.KindHighValueLead)
		}
	}
	if cfg.SMTPHost != "" {
		email, err := notify.NewEmailSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		if err != nil {
			log.Warn("email notifications disabled", zap.Error(err))
		} else {
			dispatcher.AddSender(email, notify.KindEscalation, notify.KindHighValueLead)
		}
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		dispatcher.AddSender(notify.NewSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber),
			notify.KindEscalation)
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramBroadcaster(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			dispatcher.AddBroadcaster(tg)
		}
	}
	log.Info("notification channels", zap.Strings("channels", dispatcher.Channels()))

	// Services
	authSvc := service.NewAuthService(st, cfg.JWTSecret, cfg.JWTExpiration, log)
	conversationSvc := service.NewConversationService(st, publisher, log)
	webhookSvc := service.NewWebhookService(st, ai, dispatcher, publisher, log)

	secrets := map[model.Channel]string{
		model.ChannelWhatsApp:  cfg.WhatsAppWebhookSecret,
		model.ChannelFacebook:  cfg.FacebookWebhookSecret,
		model.ChannelInstagram: cfg.InstagramWebhookSecret,
	}
	for ch, secret := range secrets {
		if secret == "" {
			log.Warn("webhook secret not set, accepting unsigned deliveries", zap.String("channel", string(ch)))
		}
	}

	handlers := handler.Handlers{
		Health: handler.NewHealthHandler(st, connCheck),
		Webhooks: handler.NewWebhookHandler(webhookSvc, handler.WebhookConfig{
			Secrets:      secrets,
			VerifyToken:  cfg.WhatsAppVerifyToken,
			MaxBodyBytes: cfg.WebhookMaxBodyBytes,
		}, log),
		Auth:          handler.NewAuthHandler(authSvc),
		Conversations: handler.NewConversationHandler(conversationSvc),
		Messages:      handler.NewMessageHandler(conversationSvc),
		Leads:         handler.NewLeadHandler(service.NewLeadService(st, log)),
		Analytics:     handler.NewAnalyticsHandler(service.NewAnalyticsService(st)),
	}
	if events != nil {
		handlers.Stream = handler.NewStreamHandler(events, conversationSvc, log)
	}

	router := handler.NewRouter(handlers, authSvc, handler.RouterConfig{
		CORSOrigins:              cfg.CORSOrigins,
		RateLimitRequests:        cfg.RateLimitRequests,
		RateLimitWindow:          cfg.RateLimitWindow,
		WebhookRateLimitRequests: cfg.WebhookRateLimitRequests,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// newLLMClient prefers DEFAULT_LLM and falls back to whichever key is set.
// It returns a nil client when no provider is configured.
func newLLMClient(cfg *config.Config, log *logger.Logger) (llm.Client, string) {
	keys := map[llm.Provider]string{
		llm.ProviderOpenAI:    cfg.OpenAIAPIKey,
		llm.ProviderAnthropic: cfg.AnthropicAPIKey,
	}
	models := map[llm.Provider]string{
		llm.ProviderOpenAI:    cfg.OpenAIModel,
		llm.ProviderAnthropic: cfg.AnthropicModel,
	}

	order := []llm.Provider{llm.Provider(cfg.DefaultLLM), llm.ProviderOpenAI, llm.ProviderAnthropic}
	for _, p := range order {
		if keys[p] == "" {
			continue
		}
		client, err := llm.NewClient(p, keys[p], models[p])
		if err != nil {
			log.Warn("failed to create language model client", zap.String("provider", string(p)), zap.Error(err))
			continue
		}
		log.Info("language model configured", zap.String("provider", string(p)), zap.String("model", models[p]))
		return client, models[p]
	}
	return nil, ""
}
