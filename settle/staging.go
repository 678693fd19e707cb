/*
staging.go - Durable staging of exception timelog entries

PURPOSE:
  When a month-close commit surfaces timelog entries against already
  settled projects, the entries are staged durably before the workflow
  moves to reconciliation. A crash between commit and reconciliation
  must not lose the entries: the commit has already happened on the
  server and will not report them again.

KEY LAYOUT:
  finishedTimelognum   - entry count
  finishedTimelog<i>   - JSON entry, i in [0, count)
  settlementSession    - uuid of the session that staged the set
  settlementPriorMonth - "true" when the commit covered the prior month

  The count key is the presence marker: a set exists iff the count key
  exists. Clear removes every key in one store operation.

SEE ALSO:
  - machine.go: stages on commit, clears on reconciliation completion
  - store/memory.go and store/sqlite: KV implementations
*/
package settle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/moonlake/settlement-engine/timelog"
)

// KV is the minimal durable key-value store the workflow stages into.
// Clear removes every key atomically.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context) error
}

const (
	keyCount      = "finishedTimelognum"
	keyEntry      = "finishedTimelog" // + index
	keySession    = "settlementSession"
	keyPriorMonth = "settlementPriorMonth"
)

// StagedExceptionSet is the persisted form of a commit's exception
// entries, waiting for reconciliation.
type StagedExceptionSet struct {
	// Session identifies the workflow run that staged the set. A run
	// only clears a set carrying its own token.
	Session uuid.UUID

	// IncludesPrior records whether the commit also closed the prior
	// month. The reconciliation view partitions on it.
	IncludesPrior bool

	Entries []timelog.Entry
}

// SaveStagedSet writes the set under the staging key layout. Any
// previously staged keys are cleared first.
func SaveStagedSet(ctx context.Context, kv KV, set StagedExceptionSet) error {
	if err := kv.Clear(ctx); err != nil {
		return fmt.Errorf("clearing previous staging: %w", err)
	}
	for i, e := range set.Entries {
		raw, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encoding staged entry %d: %w", i, err)
		}
		if err := kv.Set(ctx, keyEntry+strconv.Itoa(i), string(raw)); err != nil {
			return fmt.Errorf("staging entry %d: %w", i, err)
		}
	}
	if err := kv.Set(ctx, keySession, set.Session.String()); err != nil {
		return fmt.Errorf("staging session token: %w", err)
	}
	if err := kv.Set(ctx, keyPriorMonth, strconv.FormatBool(set.IncludesPrior)); err != nil {
		return fmt.Errorf("staging prior-month flag: %w", err)
	}
	// The count key goes last: its presence marks the set complete.
	if err := kv.Set(ctx, keyCount, strconv.Itoa(len(set.Entries))); err != nil {
		return fmt.Errorf("staging entry count: %w", err)
	}
	return nil
}

// LoadStagedSet reads back a staged set. ok is false when nothing is
// staged.
func LoadStagedSet(ctx context.Context, kv KV) (set StagedExceptionSet, ok bool, err error) {
	rawCount, ok, err := kv.Get(ctx, keyCount)
	if err != nil || !ok {
		return StagedExceptionSet{}, false, err
	}
	count, err := strconv.Atoi(rawCount)
	if err != nil {
		return StagedExceptionSet{}, false, fmt.Errorf("corrupt staged count %q: %w", rawCount, err)
	}

	if raw, found, err := kv.Get(ctx, keySession); err != nil {
		return StagedExceptionSet{}, false, err
	} else if found {
		set.Session, err = uuid.Parse(raw)
		if err != nil {
			return StagedExceptionSet{}, false, fmt.Errorf("corrupt staged session %q: %w", raw, err)
		}
	}
	if raw, found, err := kv.Get(ctx, keyPriorMonth); err != nil {
		return StagedExceptionSet{}, false, err
	} else if found {
		set.IncludesPrior = raw == "true"
	}

	set.Entries = make([]timelog.Entry, 0, count)
	for i := 0; i < count; i++ {
		raw, found, err := kv.Get(ctx, keyEntry+strconv.Itoa(i))
		if err != nil {
			return StagedExceptionSet{}, false, err
		}
		if !found {
			return StagedExceptionSet{}, false, fmt.Errorf("staged entry %d missing (count %d)", i, count)
		}
		var e timelog.Entry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return StagedExceptionSet{}, false, fmt.Errorf("decoding staged entry %d: %w", i, err)
		}
		set.Entries = append(set.Entries, e)
	}
	return set, true, nil
}

// ClearStagedSet removes all staged keys.
func ClearStagedSet(ctx context.Context, kv KV) error {
	return kv.Clear(ctx)
}
