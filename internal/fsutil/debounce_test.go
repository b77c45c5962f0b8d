package fsutil

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_CoalescesBurst(t *testing.T) {
	var mu sync.Mutex
	var calls []int

	d := NewDebouncer(100*time.Millisecond, func(n int) {
		mu.Lock()
		defer mu.Unlock()
		calls = append(calls, n)
	})
	defer d.Stop()

	for i := 1; i <= 5; i++ {
		d.Trigger(i)
		time.Sleep(5 * time.Millisecond)
	}

	assert.True(t, d.Pending())

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(calls) == 1
	}, time.Second, 10*time.Millisecond)

	// No further calls after the trailing one
	time.Sleep(150 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{5}, calls)
}

func TestDebouncer_SeparateBursts(t *testing.T) {
	var mu sync.Mutex
	count := 0

	d := NewDebouncer(20*time.Millisecond, func(struct{}) {
		mu.Lock()
		defer mu.Unlock()
		count++
	})
	defer d.Stop()

	d.Trigger(struct{}{})
	time.Sleep(80 * time.Millisecond)
	d.Trigger(struct{}{})
	time.Sleep(80 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, count)
}

func TestDebouncer_Flush(t *testing.T) {
	var got string
	d := NewDebouncer(time.Hour, func(s string) { got = s })
	defer d.Stop()

	d.Flush()
	assert.Empty(t, got)

	d.Trigger("a")
	d.Trigger("b")
	d.Flush()

	assert.Equal(t, "b", got)
	assert.False(t, d.Pending())
}

func TestDebouncer_Stop(t *testing.T) {
	var mu sync.Mutex
	called := false

	d := NewDebouncer(20*time.Millisecond, func(int) {
		mu.Lock()
		defer mu.Unlock()
		called = true
	})

	d.Trigger(1)
	d.Stop()
	d.Trigger(2)

	time.Sleep(60 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.False(t, called)
}
