package numerator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the sys_sequences UPSERT: every call bumps the
// counter by the increment argument (1 for strict, RangeSize for cached).
type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64
	calls        int
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	var increment int64 = 1
	if len(args) == 2 {
		if val, ok := args[1].(int64); ok {
			increment = val
		}
	}

	m.currentValue += increment
	m.calls++

	return &mockRow{val: m.currentValue}
}

func TestGetNextNumber_Strict(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := OrderConfig()

	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	num, err := svc.GetNextNumber(ctx, cfg, nil, day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260115-00001", num)

	num, err = svc.GetNextNumber(ctx, cfg, nil, day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260115-00002", num)
}

func TestGetNextNumber_YearlyPrefix(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := RefundConfig()

	num, err := svc.GetNextNumber(ctx, cfg, nil, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "RFD-2026-00001", num)
}

func TestGetNextNumber_Cached(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := OrderConfig()
	day := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	opts := &Options{
		Strategy:  StrategyCached,
		RangeSize: 10,
	}

	// First call reserves 1..10 from the DB and hands out 1.
	num, err := svc.GetNextNumber(ctx, cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260115-00001", num)
	assert.EqualValues(t, 10, q.currentValue)
	assert.Equal(t, 1, q.calls)

	// Second call is served from memory.
	num, err = svc.GetNextNumber(ctx, cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260115-00002", num)
	assert.Equal(t, 1, q.calls)

	// Exhaust the range; the next call reserves 11..20.
	for i := 0; i < 8; i++ {
		_, err = svc.GetNextNumber(ctx, cfg, opts, day)
		require.NoError(t, err)
	}

	num, err = svc.GetNextNumber(ctx, cfg, opts, day)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260115-00011", num)
	assert.EqualValues(t, 20, q.currentValue)
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_DailyReset(t *testing.T) {
	q := &mockQuerier{}
	svc := New(q)
	ctx := context.Background()
	cfg := OrderConfig()
	opts := &Options{Strategy: StrategyCached, RangeSize: 5}

	day1 := time.Date(2026, 1, 15, 23, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 1, 16, 1, 0, 0, 0, time.UTC)

	// Separate cache keys per day, so each day starts its own range.
	num1, err := svc.GetNextNumber(ctx, cfg, opts, day1)
	require.NoError(t, err)
	num2, err := svc.GetNextNumber(ctx, cfg, opts, day2)
	require.NoError(t, err)

	assert.Contains(t, num1, "20260115")
	assert.Contains(t, num2, "20260116")
	assert.Equal(t, 2, q.calls)
}

func TestParseNumber(t *testing.T) {
	assert.EqualValues(t, 42, ParseNumber("ORD-20260115-00042"))
	assert.EqualValues(t, 7, ParseNumber(fmt.Sprintf("RFD-%d-%05d", 2026, 7)))
	assert.EqualValues(t, -1, ParseNumber("garbage"))
	assert.EqualValues(t, -1, ParseNumber("ORD-"))
}
