package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewBoxOrdersCorners(t *testing.T) {
	b := NewBox(30, 40, 10, 20, "Car")
	require.Equal(t, Box{X1: 10, Y1: 20, X2: 30, Y2: 40, Class: "Car"}, b)
	require.Equal(t, 20.0, b.Width())
	require.Equal(t, 20.0, b.Height())
	require.Equal(t, 400.0, b.Area())
	cx, cy := b.Center()
	require.Equal(t, 20.0, cx)
	require.Equal(t, 30.0, cy)
}

func TestScale(t *testing.T) {
	b := NewBox(10, 20, 30, 40, "Car").Scale(0.5, 2)
	require.Equal(t, Box{X1: 5, Y1: 40, X2: 15, Y2: 80, Class: "Car"}, b)
}

func TestIsOutOfImage(t *testing.T) {
	cases := []struct {
		name string
		box  Box
		out  bool
	}{
		{"inside", NewBox(10, 10, 20, 20, ""), false},
		{"partly right", NewBox(90, 10, 150, 20, ""), false},
		{"partly negative", NewBox(-30, -30, 5, 5, ""), false},
		{"fully right", NewBox(101, 10, 150, 20, ""), true},
		{"fully left", NewBox(-50, 10, -1, 20, ""), true},
		{"fully below", NewBox(10, 120, 20, 130, ""), true},
		{"touching left edge", NewBox(-10, 10, 0, 20, ""), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.out, c.box.IsOutOfImage(100, 100))
		})
	}
}

func TestClip(t *testing.T) {
	b := NewBox(-5, 10, 150, 100, "Van").Clip(100, 100)
	require.Equal(t, 0.0, b.X1)
	require.Equal(t, 10.0, b.Y1)
	require.Less(t, b.X2, 100.0)
	require.InDelta(t, 100.0, b.X2, 1e-6)
	require.Less(t, b.Y2, 100.0)
	require.Equal(t, "Van", b.Class)
}

func TestRemoveOutOfImage(t *testing.T) {
	in := []Box{
		NewBox(10, 10, 20, 20, "a"),
		NewBox(200, 10, 220, 20, "b"),
		NewBox(-10, -10, 10, 10, "c"),
	}
	out := RemoveOutOfImage(in, 100, 100)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0].Class)
	require.Equal(t, "c", out[1].Class)
	require.Equal(t, 0.0, out[1].X1)
	require.Equal(t, 0.0, out[1].Y1)
	// input untouched
	require.Equal(t, -10.0, in[2].X1)
}
