package controller

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScale100itof(t *testing.T) {
	v, err := Scale100itof(5500, nil)
	assert.NoError(t, err)
	assert.Equal(t, 55.0, *v)

	// the error from a register read passes straight through so the
	// helper can wrap the read call
	v, err = Scale100itof(0, fmt.Errorf("read failed"))
	assert.EqualError(t, err, "read failed")
	assert.Equal(t, 0.0, *v)
}

func TestScale10itof(t *testing.T) {
	v, err := Scale10itof(215, nil)
	assert.NoError(t, err)
	assert.Equal(t, 21.5, *v)
}
