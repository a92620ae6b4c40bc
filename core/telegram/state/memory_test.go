package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryManagerIsolatesUsers(t *testing.T) {
	m := NewMemoryManager()

	m.Put(1, &Session{Flow: "run", Step: "name"})
	m.Put(2, &Session{Flow: "relay", Step: "stages"})

	s1, ok := m.Get(1)
	require.True(t, ok)
	assert.Equal(t, "run", s1.Flow)

	m.Clear(1)
	_, ok = m.Get(1)
	assert.False(t, ok)
	assert.True(t, m.InProgress(2))
}

func TestClearAllDropsEverySession(t *testing.T) {
	m := NewMemoryManager()
	m.Put(1, &Session{Flow: "run"})
	m.Put(2, &Session{Flow: "camp"})

	m.ClearAll()

	assert.False(t, m.InProgress(1))
	assert.False(t, m.InProgress(2))
}

func TestSessionHistoryRoundTrip(t *testing.T) {
	s := &Session{Step: "name"}
	s.Push("phone")
	s.Push("tier")
	require.Equal(t, Step("tier"), s.Step)

	require.True(t, s.Pop())
	assert.Equal(t, Step("phone"), s.Step)
	require.True(t, s.Pop())
	assert.Equal(t, Step("name"), s.Step)
	assert.False(t, s.Pop())
}
