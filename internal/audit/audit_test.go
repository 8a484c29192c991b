package audit

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/storage/memory"
)

func TestRecordAppends(t *testing.T) {
	store := memory.New()
	r := New(store, slog.Default())
	who := ledger.Identity{Subject: "u-1", Name: "Ada", Role: ledger.RoleAdmin}

	r.Record(context.Background(), who, ActionAccountCreate, "acc-1", meta.Of("name", "Cash on Hand"))

	log := store.AuditLog()
	require.Len(t, log, 1)
	assert.Equal(t, "Ada", log[0].Actor)
	assert.Equal(t, ledger.RoleAdmin, log[0].Role)
	assert.Equal(t, ActionAccountCreate, log[0].Action)
	assert.False(t, log[0].At.IsZero())
}

func TestRecordFailureIsLoggedOnly(t *testing.T) {
	store := memory.New()
	store.FailAudit(errors.New("disk full"))
	var buf bytes.Buffer
	r := New(store, slog.New(slog.NewTextHandler(&buf, nil)))

	r.Record(context.Background(), ledger.Identity{Subject: "u-1"}, ActionJournalPost, "e-1", nil)

	assert.Empty(t, store.AuditLog())
	assert.Contains(t, buf.String(), "audit write failed")
	assert.Contains(t, buf.String(), "disk full")
}

func TestNilRecorder(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() { r.Record(context.Background(), ledger.Identity{}, ActionLoanCreate, "x", nil) })
}
