package compositor

import (
	"fmt"
	"hash/crc32"

	"github.com/klauspost/compress/zstd"

	"github.com/zfogg/ascii-chat/bufferpool"
	"github.com/zfogg/ascii-chat/wire"
)

// Source is one client's latest decoded video frame, keyed by client id for
// logging only — the compositor picks whichever frame the caller already
// selected as the latest per source (spec §7.3 "the compositor picks the
// latest frame per source per tick").
type Source struct {
	ClientID uint32
	Frame    RGBImage
}

// Options configures one composite pass.
type Options struct {
	CanvasW, CanvasH int // character-cell canvas dimensions
	Palette          []byte
	Color            bool
	Compress         bool

	// Pool, when set, supplies the composite canvas's backing buffer
	// instead of a fresh `make` (spec §3.2/§4.2's "frequently-allocated,
	// short-lived buffers" is exactly what a per-tick canvas is). The
	// buffer is released back to Pool before Composite returns, so callers
	// must not retain canvas.Pixels beyond this call — Composite only ever
	// reads it to produce ascii/flags, never returns it to the caller.
	Pool *bufferpool.Pool
}

// Composite builds one shared ASCII_FRAME payload from the given sources,
// laid out in the grid geometry spec §4.7 picks for len(sources), letterbox
// resizing each source into its cell, converting to ASCII/ANSI, and
// optionally zstd-compressing the result (spec §4.7, §9 "Open question
// (a)": compose once at a dominant size, accept letterboxing on mismatched
// clients).
func Composite(sources []Source, opts Options) (wire.AsciiFrame, error) {
	cols, rows := SelectGrid(len(sources))
	// The composite is sampled from a pixel canvas twice as tall as the
	// character-cell canvas (spec §4.7/§8: "pixel canvas of width =
	// cells_w, height = cells_h * 2"); Convert later collapses each 1x2
	// pixel block back into one output character row.
	pixelH := opts.CanvasH * 2
	cellW, cellH := CellDimensions(opts.CanvasW, pixelH, cols, rows)

	var canvas RGBImage
	if opts.Pool != nil {
		pooled := opts.Pool.Acquire(opts.CanvasW * pixelH * 3)
		defer opts.Pool.Release(pooled)
		canvas = RGBImage{Width: opts.CanvasW, Height: pixelH, Pixels: pooled.Bytes()}
		clear(canvas.Pixels) // pooled buffers may carry a prior frame's pixels
	} else {
		canvas = RGBImage{Width: opts.CanvasW, Height: pixelH, Pixels: make([]byte, opts.CanvasW*pixelH*3)}
	}

	for i, src := range sources {
		if i >= cols*rows {
			break // extra sources beyond the chosen grid's capacity are dropped
		}
		gridX := i % cols
		gridY := i / cols
		resized := ResizeLetterboxed(src.Frame, cellW, cellH)
		BlitInto(canvas, resized, gridX, gridY, cellW, cellH)
	}

	ascii := Convert(canvas, opts.Palette, opts.Color)

	var flags uint32
	if opts.Color {
		flags |= wire.AsciiFlagColor
	}

	if !opts.Compress {
		return wire.NewAsciiFrame(uint32(opts.CanvasW), uint32(opts.CanvasH), ascii, nil, flags), nil
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return wire.AsciiFrame{}, err
	}
	defer enc.Close()
	compressed := enc.EncodeAll(ascii, nil)
	return wire.NewAsciiFrame(uint32(opts.CanvasW), uint32(opts.CanvasH), ascii, compressed, flags), nil
}

// Decompress reverses Composite's optional zstd step and re-verifies the
// inner CRC32 (spec §9 "Open question (b)": both CRCs are computed and
// validated).
func Decompress(f wire.AsciiFrame) ([]byte, error) {
	data := f.Payload
	if f.CompressedSize != 0 {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		data, err = dec.DecodeAll(f.Payload, make([]byte, 0, f.OriginalSize))
		if err != nil {
			return nil, err
		}
	}
	if crc32.ChecksumIEEE(data) != f.CRC32 {
		return nil, fmt.Errorf("ascii frame crc32 mismatch: %w", wire.ErrProtocol)
	}
	return data, nil
}
