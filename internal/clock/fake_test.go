package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeAfterFunc(t *testing.T) {
	c := Fake(epoch)
	fired := 0
	c.AfterFunc(time.Hour, func() { fired++ })

	c.Advance(59 * time.Minute)
	assert.Equal(t, 0, fired)

	c.Advance(time.Minute)
	assert.Equal(t, 1, fired)

	c.Advance(24 * time.Hour)
	assert.Equal(t, 1, fired, "one-shot fires once")
	assert.Equal(t, 0, c.Pending())
}

func TestFakeAfterFunc_Stop(t *testing.T) {
	c := Fake(epoch)
	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	assert.True(t, timer.Stop())
	assert.False(t, timer.Stop())

	c.Advance(time.Minute)
	assert.False(t, fired)
}

func TestFakeAfterFunc_DeadlineOrder(t *testing.T) {
	c := Fake(epoch)
	var order []string
	c.AfterFunc(2*time.Second, func() { order = append(order, "second") })
	c.AfterFunc(time.Second, func() { order = append(order, "first") })

	c.Advance(time.Minute)
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestFakeTicker(t *testing.T) {
	c := Fake(epoch)
	tk := c.NewTicker(time.Hour)

	c.Advance(time.Hour)
	select {
	case got := <-tk.C:
		assert.Equal(t, epoch.Add(time.Hour), got)
	default:
		t.Fatal("expected a tick")
	}

	tk.Stop()
	c.Advance(time.Hour)
	select {
	case <-tk.C:
		t.Fatal("stopped ticker ticked")
	default:
	}
}

func TestFakeTicker_PanicsOnZeroInterval(t *testing.T) {
	assert.Panics(t, func() { Fake(epoch).NewTicker(0) })
}

func TestFakeSet(t *testing.T) {
	c := Fake(epoch)
	c.Set(epoch.Add(48 * time.Hour))
	assert.Equal(t, epoch.Add(48*time.Hour), c.Now())
}
