package settle_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonlake/settlement-engine/settle"
	"github.com/moonlake/settlement-engine/settle/store"
	"github.com/moonlake/settlement-engine/timelog"
)

func TestStagedSet_SaveLoadClear(t *testing.T) {
	kv := store.NewMemory()
	ctx := context.Background()

	// GIVEN nothing staged
	_, ok, err := settle.LoadStagedSet(ctx, kv)
	require.NoError(t, err)
	assert.False(t, ok)

	// WHEN a set is saved
	in := settle.StagedExceptionSet{
		Session:       uuid.New(),
		IncludesPrior: true,
		Entries: []timelog.Entry{
			entry("u1", "alpha", 60),
			entry("u2", "", 90),
		},
	}
	require.NoError(t, settle.SaveStagedSet(ctx, kv, in))

	// THEN it loads back identically, unassigned project included
	out, ok, err := settle.LoadStagedSet(ctx, kv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, in, out)
	assert.Equal(t, "unassigned", out.Entries[1].ProjectLabel())

	// WHEN cleared
	require.NoError(t, settle.ClearStagedSet(ctx, kv))

	// THEN nothing remains
	_, ok, err = settle.LoadStagedSet(ctx, kv)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, kv.Len())
}

func TestStagedSet_SaveReplacesPrevious(t *testing.T) {
	kv := store.NewMemory()
	ctx := context.Background()

	big := settle.StagedExceptionSet{
		Session: uuid.New(),
		Entries: []timelog.Entry{entry("u1", "alpha", 60), entry("u2", "beta", 30)},
	}
	require.NoError(t, settle.SaveStagedSet(ctx, kv, big))

	small := settle.StagedExceptionSet{
		Session: uuid.New(),
		Entries: []timelog.Entry{entry("u3", "gamma", 45)},
	}
	require.NoError(t, settle.SaveStagedSet(ctx, kv, small))

	out, ok, err := settle.LoadStagedSet(ctx, kv)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, small, out)
}
