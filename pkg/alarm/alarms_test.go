package alarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActiveAlarms(t *testing.T) {
	a := &ActiveAlarms{}
	assert.True(t, a.Add("fuse overload"))
	assert.False(t, a.Add("fuse overload"))
	assert.True(t, a.Add("price fetch failed"))
	assert.Equal(t, []string{"fuse overload", "price fetch failed"}, a.List())

	assert.True(t, a.Clear())
	assert.False(t, a.Clear())
	assert.Empty(t, a.List())
}
