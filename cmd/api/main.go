package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/zhouzirui/z-chat/backend/internal/config"
	"github.com/zhouzirui/z-chat/backend/internal/handler"
	"github.com/zhouzirui/z-chat/backend/internal/model/chat"
	"github.com/zhouzirui/z-chat/backend/internal/service/ai"
	chatservice "github.com/zhouzirui/z-chat/backend/internal/service/chat"
	"github.com/zhouzirui/z-chat/backend/internal/storage/mongostore"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Fatalf("failed to open turn store: %v", err)
	}
	defer closeStore()

	if _, err := store.Probe(ctx); err != nil {
		log.Fatalf("failed to write probe document: %v", err)
	}

	relay, err := newRelay(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize relay: %v", err)
	}

	chatService := chatservice.NewService(store, relay)

	router, err := handler.NewRouter(chatService)
	if err != nil {
		log.Fatalf("failed to build router: %v", err)
	}

	startServer(ctx, cfg.Server, router)
}

func openStore(ctx context.Context, storeCfg config.StoreConfig) (chat.TurnStore, func(), error) {
	if storeCfg.Backend == config.StoreBackendMemory {
		log.Println("using in-memory turn store, history is lost on restart")
		return chat.NewMemoryStore(), func() {}, nil
	}

	client, err := mongostore.Connect(ctx, storeCfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}

	coll := client.Database(storeCfg.Database).Collection(storeCfg.Collection)
	log.Printf("connected to mongodb, db=%s collection=%s", storeCfg.Database, storeCfg.Collection)

	closeFn := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Printf("warning: failed to disconnect mongodb: %v", err)
		}
	}
	return mongostore.NewTurnStore(coll), closeFn, nil
}

func newRelay(ctx context.Context, cfg *config.Config) (ai.Relay, error) {
	if cfg.Relay.Backend == config.RelayBackendArk {
		relay, err := ai.NewArkRelay(ctx, cfg.AI, cfg.Relay.Timeout)
		if err != nil {
			return nil, err
		}
		log.Printf("relay: ark model %s", cfg.AI.Model)
		return relay, nil
	}

	log.Printf("relay: POST %s (timeout %s)", cfg.Relay.URL, cfg.Relay.Timeout)
	return ai.NewHTTPRelay(cfg.Relay.URL, cfg.Relay.Timeout), nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("chat relay listening on %s", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
