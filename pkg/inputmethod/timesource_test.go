package inputmethod

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type manualClock struct {
	t time.Time
}

func (c *manualClock) now() time.Time { return c.t }

func (c *manualClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTimeSourceMonotonic(t *testing.T) {
	clk := &manualClock{t: time.Unix(1_700_000_000, 0)}
	ts := NewTimeSource(clk.now)

	assert.Equal(t, uint32(0), ts.ElapsedMS())

	var last uint32
	for i := 0; i < 50; i++ {
		clk.advance(time.Duration(i) * time.Millisecond)
		ms := ts.ElapsedMS()
		assert.GreaterOrEqual(t, ms, last)
		last = ms
	}
	assert.Equal(t, uint32(1225), last)
}

func TestTimeSourceResetsOnOverflow(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	clk := &manualClock{t: start}
	ts := NewTimeSource(clk.now)

	clk.advance(time.Duration(math.MaxUint32) * time.Millisecond)
	assert.Equal(t, uint32(math.MaxUint32), ts.ElapsedMS())
	assert.Equal(t, start, ts.Base())

	clk.advance(time.Millisecond)
	assert.Equal(t, uint32(0), ts.ElapsedMS())
	assert.Equal(t, clk.t, ts.Base())

	clk.advance(5 * time.Millisecond)
	assert.Equal(t, uint32(5), ts.ElapsedMS())
}

func TestTimeSourceResetsWhenClockGoesBack(t *testing.T) {
	clk := &manualClock{t: time.Unix(1_700_000_000, 0)}
	ts := NewTimeSource(clk.now)

	clk.advance(-time.Second)
	assert.Equal(t, uint32(0), ts.ElapsedMS())

	clk.advance(3 * time.Millisecond)
	assert.Equal(t, uint32(3), ts.ElapsedMS())
}

func TestTimeSourceDefaultsToWallClock(t *testing.T) {
	ts := NewTimeSource(nil)
	assert.Less(t, ts.ElapsedMS(), uint32(10_000))
}
