// Package main provides the IDO ledger server:
// - HTTP API: platform initialization, pool creation, buy, claim, queries
// - WebSocket stream of committed audit events
// - Prometheus metrics and health endpoints
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-ido-ledger/internal/ledger"
	"solana-ido-ledger/internal/lifecycle"
	"solana-ido-ledger/internal/observability"
	"solana-ido-ledger/internal/storage"
	chstore "solana-ido-ledger/internal/storage/clickhouse"
	"solana-ido-ledger/internal/storage/memory"
	"solana-ido-ledger/internal/storage/migrations"
	pgstore "solana-ido-ledger/internal/storage/postgres"
	"solana-ido-ledger/internal/stream"
)

// Server holds the HTTP surface over the ledger service.
type Server struct {
	service *ledger.Service
	hub     *stream.Hub
	logger  *log.Logger
}

// allStores holds all storage implementations.
type allStores struct {
	poolStore    storage.PoolStore
	receiptStore storage.ReceiptStore
	configStore  storage.ConfigStore
	txRunner     storage.TxRunner
	auditStore   storage.AuditEventStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	listenAddr := flag.String("listen-addr", ":8080", "HTTP listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	// Validate required flags
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create stores and run migrations
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics("")
	hub := stream.NewHub(nil, logger)
	defer hub.Close()

	service := ledger.New(ledger.Options{
		PoolStore:    stores.poolStore,
		ReceiptStore: stores.receiptStore,
		ConfigStore:  stores.configStore,
		TxRunner:     stores.txRunner,
		// Settlement stub: intents are recorded, custody moves funds
		// out of band.
		Transfers: ledger.NewRecordingExecutor(),
		AuditSink: stores.auditStore,
		Publisher: hub,
		Metrics:   metrics,
		Logger:    logger,
	})

	server := &Server{
		service: service,
		hub:     hub,
		logger:  logger,
	}

	// Mirror hub stats into the stream metrics.
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		var lastDropped uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				metrics.StreamSubscribers.Set(float64(hub.SubscriberCount()))
				dropped := hub.Dropped()
				metrics.StreamDropped.Add(float64(dropped - lastDropped))
				lastDropped = dropped
			}
		}
	}()

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.routes(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		hub.Close()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
		cancel()
	}()

	logger.Printf("Listening on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates all required stores and applies migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		ledgerStore := memory.NewLedgerStore()
		stores := &allStores{
			poolStore:    ledgerStore,
			receiptStore: ledgerStore,
			configStore:  memory.NewConfigStore(),
			txRunner:     ledgerStore,
			auditStore:   memory.NewAuditEventStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := chstore.EnsureDatabase(ctx, clickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	if err := migrations.RunClickhouseMigrations(ctx, chConn); err != nil {
		chConn.Close()
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		poolStore:    pgstore.NewPoolStore(pool),
		receiptStore: pgstore.NewReceiptStore(pool),
		configStore:  pgstore.NewConfigStore(pool),
		txRunner:     pgstore.NewTxRunner(pool),
		auditStore:   chstore.NewAuditEventStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// routes builds the HTTP mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", observability.Handler())
	mux.Handle("GET /v1/stream", s.hub)

	mux.HandleFunc("POST /v1/platform/init", s.handleInitPlatform)
	mux.HandleFunc("POST /v1/pools", s.handleCreatePool)
	mux.HandleFunc("GET /v1/pools", s.handleListPools)
	mux.HandleFunc("GET /v1/pools/{id}", s.handleGetPool)
	mux.HandleFunc("POST /v1/pools/{id}/buy", s.handleBuy)
	mux.HandleFunc("POST /v1/pools/{id}/claim", s.handleClaim)
	mux.HandleFunc("GET /v1/pools/{id}/receipts", s.handleListReceipts)
	mux.HandleFunc("GET /v1/pools/{id}/receipts/{buyer}", s.handleGetReceipt)

	return mux
}

// InitPlatformRequest is the JSON body for POST /v1/platform/init.
type InitPlatformRequest struct {
	Owner   string `json:"owner"`
	Creator string `json:"creator"`
}

func (s *Server) handleInitPlatform(w http.ResponseWriter, r *http.Request) {
	var req InitPlatformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	cfg, err := s.service.InitializePlatform(r.Context(), req.Owner, req.Creator)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cfg)
}

// CreatePoolRequest is the JSON body for POST /v1/pools.
type CreatePoolRequest struct {
	Creator       string `json:"creator"`
	Name          string `json:"name"`
	CurrencyAsset string `json:"currency_asset"`
	SaleAsset     string `json:"sale_asset"`
	Rate          uint64 `json:"rate"`
	RateDecimals  uint8  `json:"rate_decimals"`
	StartTime     int64  `json:"start_time"`
	EndTime       int64  `json:"end_time"`
	ClaimTime     int64  `json:"claim_time"`
	SupplyTotal   uint64 `json:"supply_total"`
	MaxPerBuyer   uint64 `json:"max_per_buyer"`
}

func (s *Server) handleCreatePool(w http.ResponseWriter, r *http.Request) {
	var req CreatePoolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	pool, err := s.service.CreatePool(r.Context(), req.Creator, lifecycle.CreatePoolParams{
		Name:          req.Name,
		CurrencyAsset: req.CurrencyAsset,
		SaleAsset:     req.SaleAsset,
		Rate:          req.Rate,
		RateDecimals:  req.RateDecimals,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ClaimTime:     req.ClaimTime,
		SupplyTotal:   req.SupplyTotal,
		MaxPerBuyer:   req.MaxPerBuyer,
	})
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, pool)
}

func (s *Server) handleListPools(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.ListPools(r.Context())
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	view, err := s.service.GetPool(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// BuyRequest is the JSON body for POST /v1/pools/{id}/buy.
type BuyRequest struct {
	Buyer      string `json:"buyer"`
	PaidAmount uint64 `json:"paid_amount"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req BuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.service.Buy(r.Context(), r.PathValue("id"), req.Buyer, req.PaidAmount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ClaimRequest is the JSON body for POST /v1/pools/{id}/claim.
type ClaimRequest struct {
	Buyer string `json:"buyer"`
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	var req ClaimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.service.Claim(r.Context(), r.PathValue("id"), req.Buyer)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipts)
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.Context(), r.PathValue("id"), r.PathValue("buyer"))
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// writeLedgerError maps a ledger error to an HTTP status. Phase,
// supply and state rejections are conflicts with current ledger state;
// configuration mistakes are bad requests.
func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	kind := lifecycle.ErrorKind(err)

	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ledger.ErrAlreadyInitialized),
		errors.Is(err, lifecycle.ErrPoolAlreadyExists):
		status = http.StatusConflict
	case kind == lifecycle.KindPhase, kind == lifecycle.KindSupply, kind == lifecycle.KindState:
		status = http.StatusConflict
	case kind == lifecycle.KindUnknown:
		status = http.StatusInternalServerError
		s.logger.Printf("internal error: %v", err)
	}

	resp := ErrorResponse{Error: err.Error()}
	if kind != lifecycle.KindUnknown {
		resp.Kind = string(kind)
	}
	writeJSON(w, status, resp)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
