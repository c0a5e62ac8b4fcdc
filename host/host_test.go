package host

import (
	"testing"

	"gioui.org/layout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olablt/wander/tiles"
)

type fakeContent struct{ name string }

func (f *fakeContent) Layout(gtx layout.Context) layout.Dimensions { return layout.Dimensions{} }

type fakePanorama struct {
	fakeContent
	released int
}

func (p *fakePanorama) Position() tiles.LatLng { return tiles.LatLng{} }
func (p *fakePanorama) Release()               { p.released++ }

var items = []MenuItem{{ID: "normal_map", Label: "Normal"}, {ID: "hybrid_map", Label: "Hybrid"}}

func TestPushAndBack(t *testing.T) {
	root := &fakeContent{name: "map"}
	h := New(root, items, Options{})
	require.Equal(t, 1, h.Depth())

	pano := &fakePanorama{}
	require.NoError(t, h.Push(pano))
	assert.Same(t, pano, h.Top())

	backs := 0
	h.SetBackHandler(func() { backs++ })
	assert.True(t, h.Back())
	assert.Same(t, root, h.Top())
	assert.Equal(t, 1, pano.released)
	assert.Equal(t, 1, backs)

	assert.False(t, h.Back(), "root is never popped")
	assert.Equal(t, 1, backs)
}

func TestPushBounded(t *testing.T) {
	h := New(&fakeContent{}, items, Options{MaxDepth: 2})
	require.NoError(t, h.Push(&fakeContent{}))
	assert.ErrorIs(t, h.Push(&fakeContent{}), ErrStackFull)
	assert.Equal(t, 2, h.Depth())
}

func TestSelectDelegates(t *testing.T) {
	h := New(&fakeContent{}, items, Options{})
	var got []string
	h.SetSelectionHandler(func(id string) bool {
		got = append(got, id)
		return id == "normal_map"
	})

	assert.True(t, h.Select("normal_map"))
	assert.False(t, h.Select("settings"))
	assert.Equal(t, []string{"normal_map", "settings"}, got)
}

func TestCloseReleasesPanoramas(t *testing.T) {
	h := New(&fakeContent{}, items, Options{})
	pano := &fakePanorama{}
	require.NoError(t, h.Push(pano))

	h.Close()
	assert.Equal(t, 1, h.Depth())
	assert.Equal(t, 1, pano.released)
}
