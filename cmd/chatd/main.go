// Command chatd runs the chat protocol server: a TCP acceptor speaking the
// line-framed COMMAND:JSON protocol of spec.md §4.1, a MySQL-backed
// persistence gateway, an optional Redis auxiliary store, and an HTTP
// sidecar for health checks and Prometheus scraping. The process layout
// (signal-driven graceful shutdown, listener-first close) is grounded on
// the teacher's server/shutdown.go.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/chatd/chatd/internal/auth"
	"github.com/chatd/chatd/internal/config"
	"github.com/chatd/chatd/internal/convcache"
	"github.com/chatd/chatd/internal/handlers"
	"github.com/chatd/chatd/internal/httpapi"
	"github.com/chatd/chatd/internal/hub"
	"github.com/chatd/chatd/internal/server"
	"github.com/chatd/chatd/internal/store/adapter/mysql"
	"github.com/chatd/chatd/internal/store/auxkv"
	"github.com/chatd/chatd/internal/store/idgen"
)

// preParseConfigPath scans args for -config/--config before the main flag
// set is built, since config.Load must run before config.BindFlags registers
// the rest of the flags (flag values are meant to override a loaded file,
// not the other way around).
func preParseConfigPath(args []string) string {
	for i := 0; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "-config" || a == "--config":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-config="):
			return strings.TrimPrefix(a, "-config=")
		case strings.HasPrefix(a, "--config="):
			return strings.TrimPrefix(a, "--config=")
		}
	}
	return ""
}

func main() {
	configPath := preParseConfigPath(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("chatd: config load failed: %v", err)
	}
	flag.StringVar(&configPath, "config", configPath, "path to a JSON (comments allowed) config file")
	config.BindFlags(flag.CommandLine, &cfg)
	flag.Parse()

	logger := log.New(os.Stdout, "chatd: ", log.LstdFlags|log.Lmicroseconds)

	store := mysql.New()
	if err := store.Open(cfg.MySQLDSN); err != nil {
		logger.Fatalf("store open failed: %v", err)
	}
	defer store.Close()
	if err := store.CreateSchema(); err != nil {
		logger.Fatalf("schema creation failed: %v", err)
	}

	var aux *auxkv.Store
	var gen idgen.Generator
	if cfg.AuxKVAddr != "" {
		aux, err = auxkv.New(cfg.AuxKVAddr, cfg.AuxKVPoolSize)
		if err != nil {
			logger.Fatalf("auxkv connect failed: %v", err)
		}
		defer aux.Close()
		gen = aux
		logger.Printf("using redis-backed message-id allocation and hot window at %s", cfg.AuxKVAddr)
	} else {
		gen, err = idgen.NewSnowflakeGenerator(cfg.SnowflakeNodeID)
		if err != nil {
			logger.Fatalf("snowflake init failed: %v", err)
		}
	}

	cache := convcache.New(time.Duration(cfg.CacheTTLSecs) * time.Second)
	stopEvict := cache.Run(time.Minute)
	defer stopEvict()

	h := hub.New(logger)

	verifier := auth.NewBcryptVerifier()

	deps := handlers.NewDeps(store, cache, h, gen, aux, verifier, logger)
	deps.HistoryDefaultLimit = cfg.HistoryDefault
	deps.HistoryMaxLimit = cfg.HistoryMax

	dispatch := handlers.BuildDispatch(deps)

	srv := server.New(cfg.ListenAddr, dispatch, cfg.MaxLineBytes, h, logger)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpapi.NewRouter(h, logger, time.Now()),
	}

	errc := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil {
			errc <- err
		}
	}()
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigc:
		logger.Printf("signal received: %s, shutting down", sig)
	case err := <-errc:
		logger.Printf("fatal server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Printf("http sidecar shutdown error: %v", err)
	}

	srv.Shutdown()
	h.Shutdown()
	logger.Printf("shutdown complete")
}
