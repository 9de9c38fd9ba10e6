package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEqual(t *testing.T) {
	assert.True(t, Equal(1, 1))
	assert.False(t, Equal("a", "b"))
}

func TestEqualBy(t *testing.T) {
	type record struct {
		id   int
		name string
	}
	byID := EqualBy(func(r record) int { return r.id })
	assert.True(t, byID(record{id: 1, name: "a"}, record{id: 1, name: "b"}))
	assert.False(t, byID(record{id: 1, name: "a"}, record{id: 2, name: "a"}))
}
