// Package ledger coordinates the token sale operations end to end.
// It wires identity checks, the pool state machine, transactional
// storage and settlement intents into the four public operations:
// initialize platform, create pool, buy, claim.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"solana-ido-ledger/internal/domain"
	"solana-ido-ledger/internal/identity"
	"solana-ido-ledger/internal/lifecycle"
	"solana-ido-ledger/internal/observability"
	"solana-ido-ledger/internal/storage"
)

// Service-level errors.
var (
	ErrUnauthorized       = errors.New("identity not authorized for this operation")
	ErrAlreadyInitialized = errors.New("platform already initialized")
)

// TransferExecutor settles a transfer intent with the custody service.
// It runs only after the ledger transaction has committed; a failure is
// logged and counted, the committed ledger state stands, and the intent
// stays in the operation result so the caller can reconcile.
type TransferExecutor interface {
	Execute(ctx context.Context, intent *domain.TransferIntent) error
}

// EventPublisher pushes a committed audit event to live subscribers.
type EventPublisher interface {
	Publish(event *domain.AuditEvent)
}

// Service executes ledger operations.
type Service struct {
	pools    storage.PoolStore
	receipts storage.ReceiptStore
	configs  storage.ConfigStore
	txRunner storage.TxRunner

	authorizer identity.Authorizer
	transfers  TransferExecutor
	auditSink  storage.AuditEventStore
	publisher  EventPublisher
	metrics    *observability.Metrics
	logger     *log.Logger
	now        func() int64
}

// Options for creating Service.
type Options struct {
	// Required stores
	PoolStore    storage.PoolStore
	ReceiptStore storage.ReceiptStore
	ConfigStore  storage.ConfigStore
	TxRunner     storage.TxRunner

	// Authorizer resolves platform roles. Defaults to a ConfigAuthorizer
	// over ConfigStore.
	Authorizer identity.Authorizer

	// Optional collaborators
	Transfers TransferExecutor        // nil: no settlement, ledger-only
	AuditSink storage.AuditEventStore // nil: audit trail disabled
	Publisher EventPublisher          // nil: no live stream
	Metrics   *observability.Metrics  // nil: metrics disabled
	Logger    *log.Logger             // nil: log.Default()
	Now       func() int64            // nil: wall clock, unix seconds
}

// New creates a new Service.
func New(opts Options) *Service {
	authorizer := opts.Authorizer
	if authorizer == nil {
		authorizer = identity.NewConfigAuthorizer(opts.ConfigStore)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	return &Service{
		pools:      opts.PoolStore,
		receipts:   opts.ReceiptStore,
		configs:    opts.ConfigStore,
		txRunner:   opts.TxRunner,
		authorizer: authorizer,
		transfers:  opts.Transfers,
		auditSink:  opts.AuditSink,
		publisher:  opts.Publisher,
		metrics:    opts.Metrics,
		logger:     logger,
		now:        now,
	}
}

// InitializePlatform records the platform owner and the pool creator.
// It succeeds exactly once.
func (s *Service) InitializePlatform(ctx context.Context, owner, creator string) (*domain.PlatformConfig, error) {
	if err := identity.ValidateWalletAddress(owner); err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if err := identity.ValidateWalletAddress(creator); err != nil {
		return nil, fmt.Errorf("creator: %w", err)
	}

	cfg := &domain.PlatformConfig{
		Owner:         owner,
		Creator:       creator,
		InitializedAt: s.now(),
	}
	if err := s.configs.Init(ctx, cfg); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrAlreadyInitialized
		}
		return nil, fmt.Errorf("init platform config: %w", err)
	}

	s.emit(ctx, &domain.AuditEvent{
		EventType: domain.EventPlatformInitialized,
		Actor:     owner,
		Timestamp: cfg.InitializedAt,
	})
	return cfg, nil
}

// CreatePool validates and records a new sale pool. Only the platform
// creator (or owner) may create pools.
func (s *Service) CreatePool(ctx context.Context, creator string, params lifecycle.CreatePoolParams) (*domain.Pool, error) {
	start := time.Now()
	pool, err := s.createPool(ctx, creator, params)
	s.observe("create_pool", start, err)
	return pool, err
}

func (s *Service) createPool(ctx context.Context, creator string, params lifecycle.CreatePoolParams) (*domain.Pool, error) {
	if err := identity.ValidateWalletAddress(creator); err != nil {
		return nil, fmt.Errorf("creator: %w", err)
	}
	ok, err := s.authorizer.IsAuthorized(ctx, creator, domain.RoleCreator)
	if err != nil {
		return nil, fmt.Errorf("authorize creator: %w", err)
	}
	if !ok {
		return nil, ErrUnauthorized
	}
	// Asset mints only need to be well-formed keys; custody accounts
	// are derived and sit off-curve.
	if err := identity.ValidateAddress(params.CurrencyAsset); err != nil {
		return nil, fmt.Errorf("currency asset: %w", err)
	}
	if err := identity.ValidateAddress(params.SaleAsset); err != nil {
		return nil, fmt.Errorf("sale asset: %w", err)
	}

	now := s.now()
	if err := lifecycle.ValidateCreate(params, now); err != nil {
		return nil, err
	}

	pool := lifecycle.NewPool(params, creator, now)
	if err := s.pools.Insert(ctx, pool); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, lifecycle.ErrPoolAlreadyExists
		}
		return nil, fmt.Errorf("insert pool: %w", err)
	}

	if s.metrics != nil {
		s.metrics.PoolsCreated.Inc()
		s.metrics.SupplyUtilization.WithLabelValues(pool.PoolID).Set(0)
	}
	s.emit(ctx, &domain.AuditEvent{
		EventType:   domain.EventPoolCreated,
		PoolID:      pool.PoolID,
		Actor:       creator,
		TokenAmount: pool.SupplyTotal,
		Timestamp:   now,
	})
	return pool, nil
}

// BuyResult reports a committed purchase.
type BuyResult struct {
	Tokens  uint64 // sale tokens bought in this purchase
	Receipt *domain.PurchaseReceipt
	Pool    *domain.Pool
	Intent  *domain.TransferIntent // currency owed to the pool custody
}

// Buy purchases sale tokens from a pool at its fixed rate. The supply
// check and the ledger writes happen under the pool's row lock, so
// concurrent purchases never oversell.
func (s *Service) Buy(ctx context.Context, poolID, buyer string, paidAmount uint64) (*BuyResult, error) {
	start := time.Now()
	result, err := s.buy(ctx, poolID, buyer, paidAmount)
	s.observe("buy", start, err)
	return result, err
}

func (s *Service) buy(ctx context.Context, poolID, buyer string, paidAmount uint64) (*BuyResult, error) {
	if err := identity.ValidateWalletAddress(buyer); err != nil {
		return nil, fmt.Errorf("buyer: %w", err)
	}

	now := s.now()
	var result *BuyResult

	err := s.txRunner.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		pool, err := tx.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			return err
		}
		receipt, err := tx.GetReceiptForUpdate(ctx, poolID, buyer)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		purchase, err := lifecycle.Purchase(pool, receipt, buyer, paidAmount, now)
		if err != nil {
			return err
		}

		if err := tx.SavePool(ctx, pool); err != nil {
			return err
		}
		if err := tx.SaveReceipt(ctx, purchase.Receipt); err != nil {
			return err
		}

		intent := &domain.TransferIntent{
			Asset:  pool.CurrencyAsset,
			Amount: paidAmount,
			From:   buyer,
			To:     pool.PoolID,
			Memo:   fmt.Sprintf("purchase %s", purchase.Receipt.ReceiptID),
		}
		result = &BuyResult{Tokens: purchase.Tokens, Receipt: purchase.Receipt, Pool: pool, Intent: intent}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The purchase is durable; settlement happens strictly after the
	// commit and never rolls it back.
	s.settle(ctx, result.Intent)

	if s.metrics != nil {
		s.metrics.PurchasesTotal.Inc()
		s.metrics.TokensSold.Add(float64(result.Tokens))
		if result.Pool.SupplyTotal > 0 {
			s.metrics.SupplyUtilization.WithLabelValues(poolID).
				Set(float64(result.Pool.SupplySold) / float64(result.Pool.SupplyTotal))
		}
	}
	s.emit(ctx, &domain.AuditEvent{
		EventType:      domain.EventTokenPurchased,
		PoolID:         poolID,
		Actor:          buyer,
		CurrencyAmount: paidAmount,
		TokenAmount:    result.Tokens,
		Timestamp:      now,
	})
	return result, nil
}

// ClaimResult reports a committed claim.
type ClaimResult struct {
	Tokens  uint64 // sale tokens released
	Receipt *domain.PurchaseReceipt
	Intent  *domain.TransferIntent // sale tokens owed to the buyer
}

// Claim releases a buyer's full purchased balance once the claim time
// has been reached. A receipt is claimable exactly once.
func (s *Service) Claim(ctx context.Context, poolID, buyer string) (*ClaimResult, error) {
	start := time.Now()
	result, err := s.claim(ctx, poolID, buyer)
	s.observe("claim", start, err)
	return result, err
}

func (s *Service) claim(ctx context.Context, poolID, buyer string) (*ClaimResult, error) {
	if err := identity.ValidateWalletAddress(buyer); err != nil {
		return nil, fmt.Errorf("buyer: %w", err)
	}

	now := s.now()
	var result *ClaimResult

	err := s.txRunner.WithinTx(ctx, func(ctx context.Context, tx storage.Ledger) error {
		pool, err := tx.GetPoolForUpdate(ctx, poolID)
		if err != nil {
			return err
		}
		receipt, err := tx.GetReceiptForUpdate(ctx, poolID, buyer)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return lifecycle.ErrNothingToClaim
			}
			return err
		}

		claim, err := lifecycle.Claim(pool, receipt, now)
		if err != nil {
			return err
		}

		if err := tx.SaveReceipt(ctx, claim.Receipt); err != nil {
			return err
		}

		intent := &domain.TransferIntent{
			Asset:  pool.SaleAsset,
			Amount: claim.Tokens,
			From:   pool.PoolID,
			To:     buyer,
			Memo:   fmt.Sprintf("claim %s", claim.Receipt.ReceiptID),
		}
		result = &ClaimResult{Tokens: claim.Tokens, Receipt: claim.Receipt, Intent: intent}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.settle(ctx, result.Intent)

	if s.metrics != nil {
		s.metrics.ClaimsTotal.Inc()
		s.metrics.TokensClaimed.Add(float64(result.Tokens))
	}
	s.emit(ctx, &domain.AuditEvent{
		EventType:   domain.EventTokenClaimed,
		PoolID:      poolID,
		Actor:       buyer,
		TokenAmount: result.Tokens,
		Timestamp:   now,
	})
	return result, nil
}

// PoolView is a pool together with its phase at read time.
type PoolView struct {
	Pool  *domain.Pool
	Phase domain.Phase
}

// GetPool returns a pool and its current phase.
func (s *Service) GetPool(ctx context.Context, poolID string) (*PoolView, error) {
	pool, err := s.pools.GetByID(ctx, poolID)
	if err != nil {
		return nil, err
	}
	return &PoolView{Pool: pool, Phase: lifecycle.PhaseAt(pool, s.now())}, nil
}

// ListPools returns all pools with their current phases.
func (s *Service) ListPools(ctx context.Context) ([]*PoolView, error) {
	pools, err := s.pools.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	views := make([]*PoolView, 0, len(pools))
	for _, p := range pools {
		views = append(views, &PoolView{Pool: p, Phase: lifecycle.PhaseAt(p, now)})
	}
	return views, nil
}

// GetReceipt returns the buyer's receipt for a pool.
func (s *Service) GetReceipt(ctx context.Context, poolID, buyer string) (*domain.PurchaseReceipt, error) {
	return s.receipts.Get(ctx, poolID, buyer)
}

// ListReceipts returns all receipts for a pool.
func (s *Service) ListReceipts(ctx context.Context, poolID string) ([]*domain.PurchaseReceipt, error) {
	return s.receipts.GetByPool(ctx, poolID)
}

// settle hands a committed intent to the custody executor. Failures are
// logged and counted; the ledger state already committed, so the caller
// reconciles using the intent carried in the result.
func (s *Service) settle(ctx context.Context, intent *domain.TransferIntent) {
	if s.transfers == nil {
		return
	}
	if err := s.transfers.Execute(ctx, intent); err != nil {
		s.logger.Printf("[ledger] settle %s: %v", intent.Memo, err)
		if s.metrics != nil {
			s.metrics.SettlementErrors.Inc()
		}
	}
}

// emit records an audit event after a committed mutation. Audit
// failures are logged, never propagated: the ledger write already
// happened and must not be reported as failed.
func (s *Service) emit(ctx context.Context, event *domain.AuditEvent) {
	if s.auditSink != nil {
		if err := s.auditSink.Insert(ctx, event); err != nil {
			s.logger.Printf("[ledger] audit sink %s: %v", event.EventType, err)
			if s.metrics != nil {
				s.metrics.AuditSinkErrors.Inc()
			}
		}
	}
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
	if s.metrics != nil {
		s.metrics.AuditEventsEmitted.WithLabelValues(event.EventType).Inc()
	}
}

func (s *Service) observe(operation string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.OperationLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.OperationErrors.WithLabelValues(operation, string(lifecycle.ErrorKind(err))).Inc()
	}
}
