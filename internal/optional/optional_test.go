package optional_test

import (
	"testing"

	"git.netflux.io/rob/backdrop/internal/optional"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	opt := optional.New("hello")
	assert.True(t, opt.Present)
	assert.Equal(t, "hello", opt.Value)
	assert.Equal(t, "hello", opt.Or("fallback"))
}

func TestEmpty(t *testing.T) {
	opt := optional.Empty[int]()
	assert.False(t, opt.Present)
	assert.Zero(t, opt.Value)
	assert.Equal(t, 42, opt.Or(42))
}

func TestNonZero(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  optional.V[string]
	}{
		{
			name:  "zero value",
			value: "",
			want:  optional.Empty[string](),
		},
		{
			name:  "non-zero value",
			value: "Sunset",
			want:  optional.New("Sunset"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, optional.NonZero(tc.value))
		})
	}
}

func TestOr(t *testing.T) {
	assert.Equal(t, 0, optional.New(0).Or(7), "a present zero value is still present")
	assert.Equal(t, 7, optional.V[int]{}.Or(7))
}
