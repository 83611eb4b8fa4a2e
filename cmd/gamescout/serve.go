package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mkravets/gamescout/internal/agent"
	"github.com/mkravets/gamescout/internal/ai"
	"github.com/mkravets/gamescout/internal/config"
	"github.com/mkravets/gamescout/internal/db"
	"github.com/mkravets/gamescout/internal/httpapi"
	"github.com/mkravets/gamescout/internal/refresh"
	"github.com/mkravets/gamescout/internal/storefront"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GameScout API server and refresh monitor",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	gdb, err := db.Connect(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return err
	}
	if gdb == nil {
		log.Warn().Msg("no DB_DSN configured, running without persistence")
	}

	var cache *storefront.Cache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cache = storefront.NewCache(rdb, cfg.StorefrontCacheTTL)
	}
	steam := storefront.NewSteam(cache)
	cheapShark := storefront.NewCheapShark(cache)

	provider := buildProvider(ctx, cfg, log)

	ag, err := agent.New(agent.Config{
		MinChangePercent:  cfg.MinChangePercent,
		MinChangeAbsolute: cfg.MinChangeAbsolute,
		Cooldown:          cfg.DetectorCooldown,
		LedgerCapacity:    cfg.LedgerCapacity,
		ContextEvents:     cfg.ContextEvents,
		HistoryWindow:     cfg.HistoryWindow,
	}, gdb, provider, &steamLookup{steam: steam}, log)
	if err != nil {
		return err
	}

	monitor := &refresh.Monitor{
		Agent:    ag,
		Steam:    steam,
		Interval: cfg.RefreshInterval,
		Log:      log,
	}
	if cfg.RefreshQueueEnabled {
		pub, err := refresh.NewPublisher(cfg.RabbitURL, cfg.RabbitQueue)
		if err != nil {
			return err
		}
		defer pub.Close()
		monitor.Publisher = pub

		// The consumer runs in this process so every refresh flows through
		// the same agent state the API serves from.
		consumer := &refresh.Consumer{
			Agent:       ag,
			Steam:       steam,
			URL:         cfg.RabbitURL,
			Queue:       cfg.RabbitQueue,
			Concurrency: cfg.WorkerConcurrency,
			Log:         log,
		}
		go func() {
			if err := consumer.Run(ctx); err != nil {
				log.Error().Err(err).Msg("refresh consumer stopped")
			}
		}()
	}
	go monitor.Run(ctx)

	router := httpapi.NewRouter(ag, steam, cheapShark, httpapi.RouterConfig{
		JWTSecret: cfg.JWTSecret,
		AIEnabled: provider != nil,
	}, log)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildProvider resolves the configured AI provider. Failure is not fatal:
// chat falls back to a context summary until a provider is available.
func buildProvider(ctx context.Context, cfg config.Config, log zerolog.Logger) ai.Provider {
	reg := ai.NewRegistry()
	reg.Register("ollama", func(ctx context.Context, model string) (ai.Provider, error) {
		return ai.NewOllamaProvider(cfg.OllamaBaseURL, model), nil
	})
	reg.Register("openrouter", func(ctx context.Context, model string) (ai.Provider, error) {
		if cfg.OpenRouterAPIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY is not set")
		}
		return ai.NewOpenRouterProvider(cfg.OpenRouterBaseURL, cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterSiteURL, cfg.OpenRouterAppName), nil
	})

	model := cfg.OllamaModel
	if cfg.AIProvider == "openrouter" {
		model = cfg.OpenRouterModel
	}
	p, err := reg.Get(ctx, cfg.AIProvider, model)
	if err != nil {
		log.Warn().Err(err).Str("provider", cfg.AIProvider).Msg("ai provider unavailable, chat will fall back to summaries")
		return nil
	}
	return p
}

// steamLookup adapts the Steam storefront client to the agent's Lookup
// interface.
type steamLookup struct {
	steam *storefront.Steam
}

func (l *steamLookup) Search(ctx context.Context, title string, limit int) ([]agent.LookupResult, error) {
	results, err := l.steam.Search(ctx, title, limit)
	if err != nil {
		return nil, err
	}
	out := make([]agent.LookupResult, 0, len(results))
	for _, r := range results {
		out = append(out, agent.LookupResult{
			ExternalID: strconv.Itoa(r.AppID),
			Name:       r.Name,
			Price:      r.Price,
			Currency:   r.Currency,
		})
	}
	return out, nil
}
