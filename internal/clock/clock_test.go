package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSimNeverMovesBackwards(t *testing.T) {
	c := NewSim(100)

	assert.Equal(t, int64(150), c.Advance(150))
	assert.Equal(t, int64(150), c.Advance(120))
	assert.Equal(t, int64(150), c.Now())
}

func TestSimConcurrentAdvance(t *testing.T) {
	c := NewSim(0)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ts := range int64(1000) {
				c.Advance(ts*8 + int64(i))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(999*8+7), c.Now())
}

func TestWallIsCurrent(t *testing.T) {
	before := time.Now().UnixNano()
	now := Wall{}.Now()
	assert.GreaterOrEqual(t, now, before)
}
