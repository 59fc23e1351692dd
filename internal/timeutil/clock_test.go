package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMockClock_AdvanceFiresExpiredTimers(t *testing.T) {
	start := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewMockClock(start)

	short := c.NewTimer(30 * time.Second)
	long := c.NewTimer(90 * time.Second)

	assert.Equal(t, 30*time.Second, <-c.TimerCreated())
	assert.Equal(t, 90*time.Second, <-c.TimerCreated())

	c.Advance(30 * time.Second)

	select {
	case fired := <-short.C():
		assert.Equal(t, start.Add(30*time.Second), fired)
	default:
		t.Fatal("short timer should have fired")
	}

	select {
	case <-long.C():
		t.Fatal("long timer fired early")
	default:
	}

	c.Advance(time.Minute)
	select {
	case <-long.C():
	default:
		t.Fatal("long timer should have fired")
	}
}

func TestMockTimer_StopPreventsFiring(t *testing.T) {
	c := NewMockClock(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC))
	timer := c.NewTimer(time.Second)

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Hour)
	select {
	case <-timer.C():
		t.Fatal("stopped timer fired")
	default:
	}
}

func TestRealClock_Timer(t *testing.T) {
	var c Clock = RealClock{}
	timer := c.NewTimer(time.Millisecond)
	defer timer.Stop()

	select {
	case <-timer.C():
	case <-time.After(time.Second):
		t.Fatal("real timer did not fire")
	}
	assert.False(t, c.Now().IsZero())
}
