package memory

import "github.com/tinoosan/loanledger/internal/storage"

// Compile-time interface assertions documenting which interfaces Store satisfies.
var (
	_ storage.Store        = (*Store)(nil)
	_ storage.Reader       = (*Store)(nil)
	_ storage.ReadyChecker = (*Store)(nil)
	_ storage.LedgerTx     = (*tx)(nil)
)
