package anova

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/anicoll/anova-integration/internal/pkg/model"
)

func TestRegistry_DiscoversOnce(t *testing.T) {
	r := NewRegistry(&fakeCommander{}, zaptest.NewLogger(t))

	discovered := []*Oven{}
	r.OnDiscovered(func(o *Oven) { discovered = append(discovered, o) })

	first := r.Upsert("abcdef123", idleState())
	second := r.Upsert("abcdef123", cookingState(model.ToastStages()))

	require.Len(t, discovered, 1)
	assert.Same(t, first, second)
	assert.Same(t, first, discovered[0])
	assert.Equal(t, "Oven abcd", first.Name())
	assert.True(t, first.IsOn())
}

func TestRegistry_SeededSnapshotRaisesNoCookStart(t *testing.T) {
	r := NewRegistry(&fakeCommander{}, zaptest.NewLogger(t))

	var events func() []Event
	r.OnDiscovered(func(o *Oven) {
		events = recordEvents(o)
	})

	r.Upsert("oven-1", cookingState(model.ToastStages()))
	require.NotNil(t, events)
	assert.Equal(t, []EventType{EventStateUpdated}, eventTypes(events()))

	r.Upsert("oven-1", idleState())
	assert.Equal(t, []EventType{EventStateUpdated, EventCookEnded, EventStateUpdated}, eventTypes(events()))
}

func TestRegistry_Names(t *testing.T) {
	r := NewRegistry(&fakeCommander{}, zaptest.NewLogger(t))

	r.SetNames([]model.WifiListEntry{
		{CookerID: "oven-1", Name: "Kitchen"},
		{CookerID: "", Name: "ignored"},
	})
	oven := r.Upsert("oven-1", idleState())
	assert.Equal(t, "Kitchen", oven.Name())

	events := recordEvents(oven)
	r.SetNames([]model.WifiListEntry{{CookerID: "oven-1", Name: "Garage"}})
	assert.Equal(t, "Garage", oven.Name())
	assert.Equal(t, []Event{{Type: EventNameChanged, DeviceID: "oven-1", Name: "Garage"}}, events())

	short := r.Upsert("ab", idleState())
	assert.Equal(t, "Oven ab", short.Name())
}

func TestRegistry_GetAndList(t *testing.T) {
	r := NewRegistry(&fakeCommander{}, zaptest.NewLogger(t))

	_, ok := r.Get("missing")
	assert.False(t, ok)

	r.Upsert("c", idleState())
	r.Upsert("a", idleState())
	r.Upsert("b", idleState())

	ids := []string{}
	for _, o := range r.List() {
		ids = append(ids, o.ID())
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	oven, ok := r.Get("b")
	require.True(t, ok)
	assert.Equal(t, "b", oven.ID())
}
