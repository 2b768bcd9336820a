package compositor

// RGBImage is a flat RGB24 pixel buffer with explicit dimensions, matching
// the wire.ImageFrame payload shape without depending on the wire package.
type RGBImage struct {
	Width, Height int
	Pixels        []byte // len == Width*Height*3
}

func (img RGBImage) at(x, y int) (r, g, b byte) {
	i := (y*img.Width + x) * 3
	return img.Pixels[i], img.Pixels[i+1], img.Pixels[i+2]
}

// ResizeLetterboxed nearest-neighbor resizes src into a dstW x dstH buffer,
// preserving src's aspect ratio and padding the remainder with black bars
// (spec §4.7 "aspect-preserving resize+letterboxing"). Terminal cells are
// roughly 1 pixel wide by 2 tall, so dstH should already be pre-scaled by
// the caller to account for that before calling.
func ResizeLetterboxed(src RGBImage, dstW, dstH int) RGBImage {
	out := RGBImage{Width: dstW, Height: dstH, Pixels: make([]byte, dstW*dstH*3)}
	if src.Width == 0 || src.Height == 0 || dstW == 0 || dstH == 0 {
		return out
	}

	srcAspect := float64(src.Width) / float64(src.Height)
	dstAspect := float64(dstW) / float64(dstH)

	var scaledW, scaledH int
	if srcAspect > dstAspect {
		scaledW = dstW
		scaledH = int(float64(dstW) / srcAspect)
	} else {
		scaledH = dstH
		scaledW = int(float64(dstH) * srcAspect)
	}
	if scaledW < 1 {
		scaledW = 1
	}
	if scaledH < 1 {
		scaledH = 1
	}

	offX := (dstW - scaledW) / 2
	offY := (dstH - scaledH) / 2

	for y := 0; y < scaledH; y++ {
		srcY := y * src.Height / scaledH
		for x := 0; x < scaledW; x++ {
			srcX := x * src.Width / scaledW
			r, g, b := src.at(srcX, srcY)
			dx, dy := x+offX, y+offY
			if dx < 0 || dx >= dstW || dy < 0 || dy >= dstH {
				continue
			}
			i := (dy*dstW + dx) * 3
			out.Pixels[i] = r
			out.Pixels[i+1] = g
			out.Pixels[i+2] = b
		}
	}
	return out
}

// BlitInto copies src into dst at cell-grid position (gridX, gridY) of size
// cellW x cellH, used to assemble the N-up grid canvas (spec §4.7).
func BlitInto(dst RGBImage, src RGBImage, gridX, gridY, cellW, cellH int) {
	baseX := gridX * cellW
	baseY := gridY * cellH
	for y := 0; y < cellH && y < src.Height; y++ {
		for x := 0; x < cellW && x < src.Width; x++ {
			dx, dy := baseX+x, baseY+y
			if dx < 0 || dx >= dst.Width || dy < 0 || dy >= dst.Height {
				continue
			}
			r, g, b := src.at(x, y)
			i := (dy*dst.Width + dx) * 3
			dst.Pixels[i] = r
			dst.Pixels[i+1] = g
			dst.Pixels[i+2] = b
		}
	}
}
