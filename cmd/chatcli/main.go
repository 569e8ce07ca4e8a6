// cmd/chatcli/main.go
// Terminal chat client for the SpendSense messaging backend.
// Bootstraps the session: config, token inspection, REST seed fetch,
// websocket transport, event router, and a local debug/metrics server.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mamoon-17/SpendSense-sub001/internal/api"
	"github.com/mamoon-17/SpendSense-sub001/internal/auth"
	"github.com/mamoon-17/SpendSense-sub001/internal/chat"
	"github.com/mamoon-17/SpendSense-sub001/internal/config"
)

// activityLogger observes the store and logs list-level changes.
type activityLogger struct {
	store *chat.Store
	log   *zap.SugaredLogger
}

func (a *activityLogger) ConversationsChanged() {
	a.log.Debugw("store updated",
		"conversations", len(a.store.Conversations()),
		"unread_total", a.store.UnreadTotal(),
	)
}

func main() {
	joinID := flag.String("join", "", "conversation id to join on startup")
	flag.Parse()

	// 1. Load environment variables
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "no .env file found, using environment variables")
	}

	// 2. Load and validate configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "configuration invalid:", err)
		os.Exit(1)
	}

	// 3. Logger
	var base *zap.Logger
	var err error
	if cfg.IsDevelopment() {
		base, err = zap.NewDevelopment()
	} else {
		base, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	defer base.Sync()
	logger := base.Sugar()

	logger.Infow("starting chat client", "socket", cfg.SocketURL, "api", cfg.APIBaseURL)

	// 4. Inspect the bearer token; no credential, no session
	claims, err := auth.InspectToken(cfg.AuthToken)
	if err != nil {
		logger.Fatalw("bearer token rejected", "error", err)
	}
	logger.Infow("authenticated", "user_id", claims.UserID, "username", claims.Username)

	// 5. Core state
	store := chat.NewStore()
	store.SetCurrentUser(claims.UserID)
	presence := chat.NewPresence()
	store.Subscribe(&activityLogger{store: store, log: logger})

	// 6. Seed the store from the REST conversation list. A failed seed is
	// not fatal: the socket's conversations_list snapshot covers it.
	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	conversations, err := api.NewClient(cfg.APIBaseURL, cfg.AuthToken).GetConversations(seedCtx)
	cancel()
	if err != nil {
		logger.Warnw("conversation seed fetch failed", "error", err)
	} else {
		store.ReplaceConversations(conversations)
		logger.Infow("store seeded", "conversations", len(conversations))
	}

	// 7. Transport and router
	transport, err := chat.DialWS(cfg.SocketURL, cfg.AuthToken, logger)
	if err != nil {
		logger.Fatalw("websocket dial failed", "url", cfg.SocketURL, "error", err)
	}
	router := chat.NewRouter(store, presence, transport, logger, cfg.PageSize)
	transport.OnEvent(router.HandleEvent)
	transport.Start()
	router.RequestConversations()

	// 8. Debug/metrics server
	var debugSrv *http.Server
	if cfg.DebugAddr != "" {
		debugSrv = startDebugServer(cfg.DebugAddr, store, presence, logger)
	}

	// 9. Optionally join a conversation and read messages from stdin
	if *joinID != "" {
		if err := router.JoinConversation(*joinID); err != nil {
			logger.Fatalw("cannot join conversation", "id", *joinID, "error", err)
		}
		router.RequestMessages(*joinID, 1)

		// Advisory only: the loading indicator clears after a fixed
		// delay, the underlying request is never cancelled.
		logger.Info("loading history...")
		time.AfterFunc(5*time.Second, func() {
			logger.Debug("history loading indicator cleared")
		})

		go readSendLoop(router, *joinID, logger)
	}

	// 10. Wait for shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Info("shutting down")
	if debugSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		debugSrv.Shutdown(ctx)
		cancel()
	}
	transport.Close()
}

// readSendLoop sends stdin lines as messages to the joined conversation.
func readSendLoop(router *chat.Router, conversationID string, logger *zap.SugaredLogger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if _, err := router.SendMessage(conversationID, line); err != nil {
			fmt.Fprintln(os.Stderr, "not sent:", err)
			continue
		}
	}
}

func startDebugServer(addr string, store *chat.Store, presence *chat.Presence, logger *zap.SugaredLogger) *http.Server {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	r.HandleFunc("/debug/conversations", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"conversations": store.Conversations(),
			"unread_total":  store.UnreadTotal(),
			"typing":        store.TypingUsers(),
		})
	}).Methods("GET")

	r.HandleFunc("/debug/presence", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"online": presence.Online()})
	}).Methods("GET")

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		logger.Infow("debug server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnw("debug server stopped", "error", err)
		}
	}()
	return srv
}
