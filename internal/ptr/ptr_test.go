package ptr_test

import (
	"testing"

	"git.netflux.io/rob/backdrop/internal/ptr"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	v := 0
	p := ptr.New(v)
	v = 5

	assert.Equal(t, 0, *p)
}

func TestValueOr(t *testing.T) {
	assert.Equal(t, 7, ptr.ValueOr(nil, 7))
	assert.Equal(t, 0, ptr.ValueOr(ptr.New(0), 7))
}
