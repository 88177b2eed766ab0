// Package images renders raw thermal frames into display images: palette
// mapping, the display-orientation mirror and integer upscaling.
package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/disintegration/imaging"

	"github.com/tbeaulieu/mlxcam-go/domain/sensor"
)

// ironStops anchors the iron-style palette from cold black through indigo
// and orange to white.
var ironStops = []struct {
	pos float64
	c   color.NRGBA
}{
	{0.0, color.NRGBA{0x00, 0x00, 0x00, 0xff}},
	{0.2, color.NRGBA{0x20, 0x00, 0x8c, 0xff}},
	{0.4, color.NRGBA{0x91, 0x00, 0x9c, 0xff}},
	{0.6, color.NRGBA{0xe2, 0x3d, 0x00, 0xff}},
	{0.8, color.NRGBA{0xff, 0xa4, 0x00, 0xff}},
	{1.0, color.NRGBA{0xff, 0xff, 0xff, 0xff}},
}

var ironPalette = buildIronPalette()

func buildIronPalette() [256]color.NRGBA {
	var p [256]color.NRGBA
	for i := range p {
		pos := float64(i) / 255
		hi := 1
		for hi < len(ironStops)-1 && ironStops[hi].pos < pos {
			hi++
		}
		a, b := ironStops[hi-1], ironStops[hi]
		t := (pos - a.pos) / (b.pos - a.pos)
		p[i] = color.NRGBA{
			R: lerp(a.c.R, b.c.R, t),
			G: lerp(a.c.G, b.c.G, t),
			B: lerp(a.c.B, b.c.B, t),
			A: 0xff,
		}
	}
	return p
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// Render maps a raw frame to a display image: samples normalized to the
// frame's min..max span, mapped through the iron palette and mirrored along
// the column axis for display orientation.
func Render(f *sensor.Frame) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, sensor.Cols, sensor.Rows))
	lo, hi := f.Min(), f.Max()
	span := hi - lo
	for row := 0; row < sensor.Rows; row++ {
		for col := 0; col < sensor.Cols; col++ {
			v := 0.0
			if span > 0 {
				v = (f.At(row, col) - lo) / span
			}
			idx := int(v*255 + 0.5)
			if idx < 0 {
				idx = 0
			} else if idx > 255 {
				idx = 255
			}
			img.SetNRGBA(sensor.MaxCol-col, row, ironPalette[idx])
		}
	}
	return img
}

// Upscale enlarges a display image by an integer factor with
// nearest-neighbour sampling so the sensor pixel grid stays crisp.
func Upscale(img image.Image, factor int) *image.NRGBA {
	if factor < 1 {
		factor = 1
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*factor, b.Dy()*factor, imaging.NearestNeighbor)
}

// EncodePNG encodes an image to PNG bytes. Errors are ignored and may return
// an empty slice.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
