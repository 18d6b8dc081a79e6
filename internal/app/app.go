package app

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/trackcqishibee-web/locallife-assistant/config"
	"github.com/trackcqishibee-web/locallife-assistant/internal/backend"
	"github.com/trackcqishibee-web/locallife-assistant/internal/storage"
	"github.com/trackcqishibee-web/locallife-assistant/internal/storage/bolt"
	in_memory "github.com/trackcqishibee-web/locallife-assistant/internal/storage/in-memory"
	key_value "github.com/trackcqishibee-web/locallife-assistant/internal/storage/key-value"
	"github.com/trackcqishibee-web/locallife-assistant/internal/telemetry"
	"github.com/trackcqishibee-web/locallife-assistant/internal/usecase"
)

func Run(ctx context.Context, cfg *config.Config) error {
	logger, err := telemetry.InitLogger(cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	tracer, meter, cleanup, err := telemetry.InitTelemetry(ctx, cfg.Logging.Dir)
	if err != nil {
		return fmt.Errorf("failed to init telemetry: %w", err)
	}
	defer cleanup()

	store, closeStore, err := openStore(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to open state store: %w", err)
	}
	defer closeStore()

	client := backend.NewClient(cfg.Backend, logger, tracer, meter)

	conversationUsecase := usecase.NewConversationUsecase(
		usecase.ConversationUsecaseDeps{
			Store: store,
			API:   client,
		}, logger,
	)

	identityUsecase := usecase.NewIdentityUsecase(
		usecase.IdentityUsecaseDeps{
			Store:         store,
			API:           client,
			Conversations: conversationUsecase,
		}, logger,
	)

	usageUsecase := usecase.NewUsageUsecase(
		usecase.UsageUsecaseDeps{
			Store: store,
			API:   client,
		}, cfg.Chat, logger,
	)

	assistantUsecase := usecase.NewAssistantUsecase(
		usecase.AssistantUsecaseDeps{
			Identity:      identityUsecase,
			Conversations: conversationUsecase,
			Usage:         usageUsecase,
			Selection:     usecase.NewSelectionUsecase(logger),
			Extraction:    usecase.NewExtractionUsecase(cfg.Extraction, logger),
			Reconciler:    usecase.NewReconciler(cfg.Chat.RecencyWindow, logger),
			Chat:          client,
		},
		cfg.Backend, logger, os.Stdin, os.Stdout,
	)

	return assistantUsecase.Run(ctx)
}

func openStore(cfg config.Storage) (storage.Store, func(), error) {
	switch cfg.Driver {
	case "bolt":
		store, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	case "redis":
		rdb := redis.NewClient(
			&redis.Options{
				Addr: cfg.RedisEndpoint,
			},
		)
		return key_value.NewStore(rdb, cfg.RedisNamespace), func() { _ = rdb.Close() }, nil
	case "memory":
		return in_memory.NewStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver: %s", cfg.Driver)
	}
}
