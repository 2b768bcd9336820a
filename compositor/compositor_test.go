package compositor

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/ascii-chat/bufferpool"
	"github.com/zfogg/ascii-chat/wire"
)

func TestSelectGrid(t *testing.T) {
	cases := []struct {
		n, cols, rows int
	}{
		{0, 1, 1},
		{1, 1, 1},
		{2, 2, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 3, 3},
		{9, 3, 3},
		{20, 3, 3},
	}
	for _, c := range cases {
		cols, rows := SelectGrid(c.n)
		require.Equal(t, c.cols, cols, "n=%d", c.n)
		require.Equal(t, c.rows, rows, "n=%d", c.n)
	}
}

func solidImage(w, h int, r, g, b byte) RGBImage {
	img := RGBImage{Width: w, Height: h, Pixels: make([]byte, w*h*3)}
	for i := 0; i < w*h; i++ {
		img.Pixels[i*3] = r
		img.Pixels[i*3+1] = g
		img.Pixels[i*3+2] = b
	}
	return img
}

func TestResizeLetterboxedPreservesAspect(t *testing.T) {
	src := solidImage(100, 50, 255, 255, 255)
	out := ResizeLetterboxed(src, 40, 40)
	require.Equal(t, 40, out.Width)
	require.Equal(t, 40, out.Height)
	// center should be white, corners should be black (letterbox bars)
	r, _, _ := out.at(20, 20)
	require.Equal(t, byte(255), r)
	r, _, _ = out.at(0, 0)
	require.Equal(t, byte(0), r)
}

func TestConvertIsDeterministic(t *testing.T) {
	img := solidImage(4, 2, 128, 128, 128)
	a := Convert(img, DefaultPalette, false)
	b := Convert(img, DefaultPalette, false)
	require.Equal(t, a, b)
}

func TestConvertAveragesTwoStackedPixelRows(t *testing.T) {
	img := RGBImage{Width: 1, Height: 2, Pixels: []byte{0, 0, 0, 255, 255, 255}}
	out := Convert(img, DefaultPalette, false)
	require.Equal(t, []byte{'\n'}, out[1:])
	require.NotEqual(t, DefaultPalette[0], out[0], "averaged block should not render as the darkest glyph")
	require.NotEqual(t, DefaultPalette[len(DefaultPalette)-1], out[0], "averaged block should not render as the brightest glyph")
}

func TestCharForBrightnessOrdering(t *testing.T) {
	dark := CharFor(DefaultPalette, 0, 0, 0)
	bright := CharFor(DefaultPalette, 255, 255, 255)
	require.Equal(t, DefaultPalette[0], dark)
	require.Equal(t, DefaultPalette[len(DefaultPalette)-1], bright)
}

func TestCompositeUncompressedRoundTrip(t *testing.T) {
	sources := []Source{
		{ClientID: 1, Frame: solidImage(10, 10, 200, 0, 0)},
		{ClientID: 2, Frame: solidImage(10, 10, 0, 200, 0)},
	}
	frame, err := Composite(sources, Options{CanvasW: 20, CanvasH: 10})
	require.NoError(t, err)
	require.Equal(t, uint32(0), frame.CompressedSize)

	data, err := Decompress(frame)
	require.NoError(t, err)
	require.Equal(t, frame.Payload, data)
	require.Equal(t, crc32Of(data), frame.CRC32)
}

func TestCompositeCompressedRoundTrip(t *testing.T) {
	sources := []Source{{ClientID: 1, Frame: solidImage(40, 40, 10, 10, 10)}}
	frame, err := Composite(sources, Options{CanvasW: 80, CanvasH: 40, Compress: true})
	require.NoError(t, err)
	require.Greater(t, frame.CompressedSize, uint32(0))

	data, err := Decompress(frame)
	require.NoError(t, err)
	require.Equal(t, frame.OriginalSize, uint32(len(data)))
	require.Equal(t, crc32Of(data), frame.CRC32)
}

func TestCompositeReusesPoolBufferWithoutGhosting(t *testing.T) {
	pool := bufferpool.New(0)

	// First composite: a bright source fills the canvas.
	bright := []Source{{ClientID: 1, Frame: solidImage(20, 10, 255, 255, 255)}}
	_, err := Composite(bright, Options{CanvasW: 20, CanvasH: 10, Pool: pool})
	require.NoError(t, err)

	// Second composite reuses the freed buffer; a dark source must not show
	// any leftover bright pixels from the first tick.
	dark := []Source{{ClientID: 2, Frame: solidImage(20, 10, 0, 0, 0)}}
	frame, err := Composite(dark, Options{CanvasW: 20, CanvasH: 10, Pool: pool})
	require.NoError(t, err)
	brightest := DefaultPalette[len(DefaultPalette)-1]
	for _, b := range frame.Payload {
		require.NotEqual(t, brightest, b, "dark frame should not carry bright pixels left over from a reused buffer")
	}
}

func TestCompositeSamplesPixelCanvasTwiceCellHeight(t *testing.T) {
	sources := []Source{{ClientID: 1, Frame: solidImage(40, 40, 100, 100, 100)}}
	frame, err := Composite(sources, Options{CanvasW: 20, CanvasH: 10})
	require.NoError(t, err)

	lines := bytes.Split(bytes.TrimRight(frame.Payload, "\n"), []byte("\n"))
	require.Len(t, lines, 10, "cells_h character rows, sampled from a cells_h*2 pixel-tall canvas (spec §8)")
	for _, line := range lines {
		require.Len(t, line, 20, "cells_w characters per row")
	}
}

func crc32Of(b []byte) uint32 {
	f := wire.NewAsciiFrame(0, 0, b, nil, 0)
	return f.CRC32
}
