package ledger

import (
	"context"
	"sync"

	"solana-ido-ledger/internal/domain"
)

// RecordingExecutor accepts every transfer intent and keeps it in
// memory. It stands in for the custody integration in tests and in
// ledger-only deployments where settlement happens out of band.
type RecordingExecutor struct {
	mu      sync.Mutex
	intents []domain.TransferIntent
}

func NewRecordingExecutor() *RecordingExecutor {
	return &RecordingExecutor{}
}

func (e *RecordingExecutor) Execute(ctx context.Context, intent *domain.TransferIntent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.intents = append(e.intents, *intent)
	return nil
}

// Intents returns a copy of every intent recorded so far.
func (e *RecordingExecutor) Intents() []domain.TransferIntent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.TransferIntent, len(e.intents))
	copy(out, e.intents)
	return out
}

var _ TransferExecutor = (*RecordingExecutor)(nil)
