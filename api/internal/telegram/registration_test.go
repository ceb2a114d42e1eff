package telegram

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNameValidation(t *testing.T) {
	valid := []string{"Anna", "Жанна", "Jean-Pierre", "O'Brien", "Мария Ивановна"}
	for _, name := range valid {
		assert.True(t, nameRe.MatchString(name), name)
	}
	invalid := []string{"1234", "Anna42", "name@host", ""}
	for _, name := range invalid {
		assert.False(t, nameRe.MatchString(name), name)
	}
}

func TestSessionManagerDisarmStopsTimer(t *testing.T) {
	sm := newSessionManager()
	var fired atomic.Bool
	sm.arm(1, 20*time.Millisecond, func() { fired.Store(true) })
	sm.disarm(1)
	time.Sleep(50 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestSessionManagerRearmReplacesTimer(t *testing.T) {
	sm := newSessionManager()
	var first, second atomic.Bool
	sm.arm(1, 20*time.Millisecond, func() { first.Store(true) })
	sm.arm(1, 20*time.Millisecond, func() { second.Store(true) })
	time.Sleep(60 * time.Millisecond)
	assert.False(t, first.Load())
	assert.True(t, second.Load())
}

func TestSessionManagerIndependentUsers(t *testing.T) {
	sm := newSessionManager()
	var a, b atomic.Bool
	sm.arm(1, 20*time.Millisecond, func() { a.Store(true) })
	sm.arm(2, 20*time.Millisecond, func() { b.Store(true) })
	sm.disarm(1)
	time.Sleep(60 * time.Millisecond)
	assert.False(t, a.Load())
	assert.True(t, b.Load())
}
