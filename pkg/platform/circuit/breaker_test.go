package circuit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type event int

const (
	fail event = iota
	succeed
)

func TestBreakerTransitions(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		successes  int
		events     []event
		wantOpen   bool
		wantOpened int
		wantClosed int
	}{
		{
			name:     "stays closed below the failure threshold",
			failures: 3,
			events:   []event{fail, fail},
		},
		{
			name:       "opens on the threshold failure",
			failures:   3,
			events:     []event{fail, fail, fail},
			wantOpen:   true,
			wantOpened: 1,
		},
		{
			name:     "a success in between restarts the count",
			failures: 3,
			events:   []event{fail, fail, succeed, fail, fail},
		},
		{
			name:       "further failures while open do not reopen",
			failures:   1,
			events:     []event{fail, fail, fail},
			wantOpen:   true,
			wantOpened: 1,
		},
		{
			name:       "closes after enough consecutive successes",
			failures:   1,
			successes:  2,
			events:     []event{fail, succeed, succeed},
			wantOpened: 1,
			wantClosed: 1,
		},
		{
			name:       "a failed probe resets the success streak",
			failures:   1,
			successes:  2,
			events:     []event{fail, succeed, fail, succeed},
			wantOpen:   true,
			wantOpened: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("registry", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			var opened, closed int
			for _, e := range tt.events {
				var c Change
				if e == fail {
					_, c = b.RecordFailure()
				} else {
					_, c = b.RecordSuccess()
				}
				if c.Opened {
					opened++
				}
				if c.Closed {
					closed++
				}
			}
			assert.Equal(t, tt.wantOpen, b.IsOpen())
			assert.Equal(t, tt.wantOpened, opened)
			assert.Equal(t, tt.wantClosed, closed)
		})
	}
}

func TestAllowProbesAfterCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
	b := New("notification-sink", WithFailureThreshold(1), WithCooldown(10*time.Second), WithClock(clock.now))

	require.True(t, b.Allow())
	useFallback, _ := b.RecordFailure()
	require.True(t, useFallback)
	assert.Equal(t, "open", b.State().String())

	clock.advance(9 * time.Second)
	assert.False(t, b.Allow(), "inside cooldown")

	clock.advance(time.Second)
	assert.True(t, b.Allow(), "probe after cooldown")

	b.RecordFailure()
	assert.False(t, b.Allow(), "failed probe restarts the cooldown")
}

func TestResetAndDefaults(t *testing.T) {
	b := New("extractor", WithFailureThreshold(0), WithCooldown(-time.Second))
	assert.Equal(t, "extractor", b.Name())
	assert.Equal(t, 5, b.failureThreshold, "non-positive thresholds keep the default")
	assert.Equal(t, 30*time.Second, b.cooldown)

	for range 5 {
		b.RecordFailure()
	}
	require.True(t, b.IsOpen())
	b.Reset()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}

func TestConcurrentRecording(t *testing.T) {
	b := New("matcher", WithFailureThreshold(50))
	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.RecordFailure()
			b.Allow()
		}()
	}
	wg.Wait()
	assert.True(t, b.IsOpen())
}
