package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherLookup(t *testing.T) {
	d := New[func() string]()
	d.Register("quit", func() string { return "bye" }, "exit", "q")
	d.Register("cd", func() string { return "moved" })

	h, ok := d.Lookup("quit")
	assert.True(t, ok)
	assert.Equal(t, "bye", h())

	h, ok = d.Lookup("exit")
	assert.True(t, ok)
	assert.Equal(t, "bye", h())

	_, ok = d.Lookup("reload")
	assert.False(t, ok)

	assert.Equal(t, []string{"cd", "quit"}, d.Names())
}

func TestDispatcherDuplicatePanics(t *testing.T) {
	d := New[int]()
	d.Register("a", 1)
	assert.Panics(t, func() { d.Register("a", 2) })
}
