package session

import (
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashureev/erp-assistant/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	m := NewManager(0, 0, testLogger())

	first := m.GetOrCreate("user123")
	second := m.GetOrCreate("user123")

	assert.Same(t, first, second)
	assert.Equal(t, "user123", first.UserID)
	assert.True(t, first.State.Idle())
	assert.False(t, first.CreatedAt.IsZero())
}

func TestGetOrCreateIsolatesUsers(t *testing.T) {
	m := NewManager(0, 0, testLogger())

	a := m.GetOrCreate("a")
	a.Begin(domain.IntentCreateCustomer, domain.StepCustomerName)

	b := m.GetOrCreate("b")
	assert.NotSame(t, a, b)
	assert.True(t, b.State.Idle())
	assert.Equal(t, 2, m.Len())
}

func TestMutationsPersistAcrossLookups(t *testing.T) {
	m := NewManager(time.Hour, 0, testLogger())

	s := m.GetOrCreate("u")
	s.Begin(domain.IntentCreateQuotation, domain.StepQuotationCustomer)
	s.State.Data.Customer = "Dupont"

	again := m.GetOrCreate("u")
	assert.Equal(t, domain.StepQuotationCustomer, again.State.WaitingFor)
	assert.Equal(t, "Dupont", again.State.Data.Customer)
}

func TestReset(t *testing.T) {
	m := NewManager(0, 0, testLogger())

	s := m.GetOrCreate("u")
	s.Begin(domain.IntentCreateCustomer, domain.StepCustomerEmail)
	m.Reset("u")
	assert.True(t, s.State.Idle())

	// Unknown users are a no-op.
	m.Reset("ghost")
	_, ok := m.Get("ghost")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	m := NewManager(30*time.Millisecond, 10*time.Millisecond, testLogger())

	first := m.GetOrCreate("u")
	time.Sleep(80 * time.Millisecond)

	_, ok := m.Get("u")
	assert.False(t, ok)
	assert.NotSame(t, first, m.GetOrCreate("u"))
}

func TestAccessSlidesExpiry(t *testing.T) {
	m := NewManager(100*time.Millisecond, 0, testLogger())

	first := m.GetOrCreate("u")
	for range 5 {
		time.Sleep(30 * time.Millisecond)
		require.Same(t, first, m.GetOrCreate("u"))
	}
}

func TestDelete(t *testing.T) {
	m := NewManager(0, 0, testLogger())
	m.GetOrCreate("u")
	m.Delete("u")
	assert.Zero(t, m.Len())
}

func TestConcurrentGetOrCreate(t *testing.T) {
	m := NewManager(time.Hour, 0, testLogger())

	const workers = 32
	results := make([]*domain.Session, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = m.GetOrCreate("shared")
			_ = m.GetOrCreate("user-" + strconv.Itoa(i))
		}()
	}
	wg.Wait()

	for _, s := range results {
		assert.Same(t, results[0], s)
	}
	assert.Equal(t, workers+1, m.Len())
}
