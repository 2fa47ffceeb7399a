package snapshot

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCell_EmptyUntilFirstSet(t *testing.T) {
	c := New()
	_, ok := c.Get()
	assert.False(t, ok)
}

func TestCell_GetReturnsLastSet(t *testing.T) {
	c := New()
	c.Set([]byte("first"))
	c.Set([]byte("second"))

	got, ok := c.Get()
	assert.True(t, ok)
	assert.Equal(t, []byte("second"), got)
}

func TestCell_ConcurrentReadWrite(t *testing.T) {
	c := New()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			c.Set([]byte{byte(i)})
		}(i)
		go func() {
			defer wg.Done()
			c.Get()
		}()
	}
	wg.Wait()
}
