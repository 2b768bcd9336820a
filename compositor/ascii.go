package compositor

import "fmt"

// DefaultPalette is an ordered set of characters from darkest to brightest, index
// picked by luminance bucket (spec §4.7 "luminance → palette character
// mapping").
var DefaultPalette = []byte(" .:-=+*#%@")

// luminance computes Rec. 601 perceptual luminance for one RGB pixel (spec
// §4.7 "Rec. 601 weights").
func luminance(r, g, b byte) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// CharFor maps an RGB pixel to a palette character.
func CharFor(palette []byte, r, g, b byte) byte {
	lum := luminance(r, g, b) / 255.0
	idx := int(lum * float64(len(palette)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(palette) {
		idx = len(palette) - 1
	}
	return palette[idx]
}

// Convert renders img — a pixel canvas whose height is twice the output
// character-row count, since terminal cells are roughly 1 pixel wide by 2
// tall (spec §4.7 "pixel canvas of width = cells_w, height = cells_h * 2")
// — as an ASCII grid using palette, optionally emitting ANSI 24-bit color
// escapes per cell (spec §4.7 "ANSI color escape emission"). Each output
// character averages the 1x2 pixel block stacked above it. Convert is a
// pure function of its inputs: calling it twice on the same
// image/palette/color flag yields byte-identical output (spec §8 "ASCII
// converter determinism").
func Convert(img RGBImage, palette []byte, color bool) []byte {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	rows := (img.Height + 1) / 2
	out := make([]byte, 0, img.Width*rows*(1+boolToInt(color)*20)+rows)
	for cellY := 0; cellY < rows; cellY++ {
		y0, y1 := cellY*2, cellY*2+1
		for x := 0; x < img.Width; x++ {
			r, g, b := img.at(x, y0)
			if y1 < img.Height {
				r2, g2, b2 := img.at(x, y1)
				r = byte((int(r) + int(r2)) / 2)
				g = byte((int(g) + int(g2)) / 2)
				b = byte((int(b) + int(b2)) / 2)
			}
			ch := CharFor(palette, r, g, b)
			if color {
				out = append(out, []byte(fmt.Sprintf("\x1b[38;2;%d;%d;%dm", r, g, b))...)
			}
			out = append(out, ch)
		}
		if color {
			out = append(out, []byte("\x1b[0m")...)
		}
		out = append(out, '\n')
	}
	return out
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
