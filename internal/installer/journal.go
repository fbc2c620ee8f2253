package installer

import (
	"context"

	"toolbox/internal/logging"
	"toolbox/internal/store"
)

// journalTx wraps a history transaction. The journal is best effort: a
// failed write is logged and never fails the operation itself.
type journalTx struct {
	tx *store.Tx
}

func (in *Installer) begin(ctx context.Context, op, pkg, version string) journalTx {
	if in.history == nil {
		return journalTx{}
	}
	tx, err := in.history.Begin(ctx, op, pkg, version)
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("history: %v", err)
		return journalTx{}
	}
	return journalTx{tx: tx}
}

func (j journalTx) id() string {
	if j.tx == nil {
		return ""
	}
	return j.tx.ID()
}

func (j journalTx) commit() {
	if j.tx != nil {
		j.log(j.tx.Commit())
	}
}

func (j journalTx) rollback(reason string) {
	if j.tx != nil {
		j.log(j.tx.Rollback(reason))
	}
}

func (j journalTx) fail(err error) {
	if j.tx != nil {
		j.log(j.tx.Fail(err))
	}
}

func (j journalTx) log(err error) {
	if err != nil {
		logging.Get(logging.CategoryStore).Warn("history: %v", err)
	}
}
