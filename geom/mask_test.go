package geom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskGraySharesPixels(t *testing.T) {
	m := NewMask(4, 3)
	g := m.Gray()
	g.Pix[g.PixOffset(2, 1)] = Foreground
	require.Equal(t, Foreground, m.At(2, 1))
	require.Equal(t, 1, m.Count(Foreground))
	require.Equal(t, 11, m.Count(Background))
}
