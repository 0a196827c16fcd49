package stream

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"standx/pkg/core"
)

func TestCorrelationTable_ResolveDeliversResult(t *testing.T) {
	table := NewCorrelationTable()

	pending, err := table.Add("req-1", time.Minute)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	go table.Resolve("req-1", []byte(`{"order_id":7}`), nil)

	result, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"order_id":7}`, string(result))
	assert.Equal(t, 0, table.Len())
}

func TestCorrelationTable_DuplicateRequestID(t *testing.T) {
	table := NewCorrelationTable()

	first, err := table.Add("req-1", time.Minute)
	require.NoError(t, err)

	_, err = table.Add("req-1", time.Minute)
	assert.ErrorIs(t, err, core.ErrDuplicateRequestID)

	// The original entry is untouched and still resolvable.
	require.Equal(t, 1, table.Len())
	table.Resolve("req-1", []byte(`ok`), nil)
	result, err := first.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(result))

	// Once resolved the id is free again.
	_, err = table.Add("req-1", time.Minute)
	assert.NoError(t, err)
}

func TestCorrelationTable_ResolveUnknownID(t *testing.T) {
	table := NewCorrelationTable()
	assert.False(t, table.Resolve("never-registered", nil, nil))
}

func TestCorrelationTable_ResolvesExactlyOnce(t *testing.T) {
	table := NewCorrelationTable()

	pending, err := table.Add("req-1", time.Minute)
	require.NoError(t, err)

	assert.True(t, table.Resolve("req-1", []byte(`first`), nil))
	assert.False(t, table.Resolve("req-1", []byte(`second`), nil))

	result, err := pending.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "first", string(result))
}

func TestCorrelationTable_Sweep(t *testing.T) {
	table := NewCorrelationTable()

	expired, err := table.Add("42", 10*time.Millisecond)
	require.NoError(t, err)
	alive, err := table.Add("43", time.Minute)
	require.NoError(t, err)

	swept := table.Sweep(time.Now().Add(time.Second))
	assert.Equal(t, 1, swept)
	assert.Equal(t, 1, table.Len())

	_, err = expired.Wait(context.Background())
	assert.ErrorIs(t, err, core.ErrCommandTimeout)

	// The late response for the swept command has nowhere to go.
	assert.False(t, table.Resolve("42", []byte(`{"code":0}`), nil))

	table.Resolve("43", []byte(`ok`), nil)
	result, err := alive.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", string(result))
}

func TestCorrelationTable_FailAll(t *testing.T) {
	table := NewCorrelationTable()

	var pendings []*Pending
	for _, id := range []string{"a", "b", "c"} {
		p, err := table.Add(id, time.Minute)
		require.NoError(t, err)
		pendings = append(pendings, p)
	}

	failed := table.FailAll(core.ErrConnectionLost)
	assert.Equal(t, 3, failed)
	assert.Equal(t, 0, table.Len())

	for _, p := range pendings {
		_, err := p.Wait(context.Background())
		assert.ErrorIs(t, err, core.ErrConnectionLost)
	}
}

func TestPending_Wait_ContextCanceled(t *testing.T) {
	table := NewCorrelationTable()

	pending, err := table.Add("req-1", time.Minute)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = pending.Wait(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// Caller abandons the command; the table entry goes with it.
	table.Remove("req-1")
	assert.Equal(t, 0, table.Len())
}

func TestCorrelationTable_ConcurrentOutOfOrderResolutions(t *testing.T) {
	table := NewCorrelationTable()

	const n = 64
	ids := make([]string, n)
	pendings := make([]*Pending, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("req-%d", i)
		p, err := table.Add(ids[i], time.Minute)
		require.NoError(t, err)
		pendings[i] = p
	}

	var wg sync.WaitGroup
	for i := n - 1; i >= 0; i-- {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			table.Resolve(ids[i], []byte(ids[i]), nil)
		}(i)
	}

	for i, p := range pendings {
		result, err := p.Wait(context.Background())
		require.NoError(t, err)
		assert.Equal(t, ids[i], string(result))
	}
	wg.Wait()
	assert.Equal(t, 0, table.Len())
}
