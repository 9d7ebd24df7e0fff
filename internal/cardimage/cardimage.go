// ABOUTME: Draws a card grid as a raster image of an 80-column card with printed digits and holes
// ABOUTME: EncodePNG writes the image; HalfBlock previews it in true-color terminals

package cardimage

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Card geometry in unscaled pixels.
const (
	CellWidth  = 8
	CellHeight = 16
	marginX    = 16
	headerH    = 28
	footerH    = 12
	cornerCut  = 18

	Width  = marginX*2 + card.Columns*CellWidth
	Height = headerH + card.Rows*CellHeight + footerH
)

var (
	stock = color.RGBA{R: 0xf3, G: 0xe6, B: 0xc0, A: 0xff}
	ink   = color.RGBA{R: 0x6b, G: 0x4e, B: 0x2e, A: 0xff}
	hole  = color.RGBA{R: 0x1c, G: 0x1c, B: 0x1c, A: 0xff}
)

// Options control what is drawn.
type Options struct {
	// Text is printed along the top edge, one character above each column.
	Text string
	// Scale multiplies the output size; values below 1 are treated as 1.
	Scale int
	// NoDigits leaves the row digits unprinted.
	NoDigits bool
}

// Render draws g. The top-left corner is cut away and left transparent.
func Render(g card.Grid, opts Options) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(stock), image.Point{}, draw.Src)

	for y := range cornerCut {
		for x := range cornerCut - y {
			img.Set(x, y, color.Transparent)
		}
	}

	d := &font.Drawer{Dst: img, Src: image.NewUniform(ink), Face: basicfont.Face7x13}

	if opts.Text != "" {
		col := 0
		for _, r := range opts.Text {
			if col >= card.Columns {
				break
			}
			if r > ' ' && r < 0x7f {
				d.Dot = fixed.P(cellX(col), headerH-8)
				d.DrawString(string(r))
			}
			col++
		}
	}

	for i, label := range card.Labels {
		for c := range card.Columns {
			x, y := cellX(c), cellY(i)
			if g[i][c] {
				r := image.Rect(x+2, y+2, x+CellWidth-2, y+CellHeight-2)
				draw.Draw(img, r, image.NewUniform(hole), image.Point{}, draw.Src)
				continue
			}
			if !opts.NoDigits && !label.IsZone() {
				d.Dot = fixed.P(x, y+CellHeight-3)
				d.DrawString(label.String())
			}
		}
	}

	if opts.Scale <= 1 {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, Width*opts.Scale, Height*opts.Scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}

// CellBounds returns the unscaled pixel rectangle of a row label and column (1..80).
func CellBounds(label card.RowLabel, col int) (image.Rectangle, bool) {
	i, ok := card.IndexOf(label)
	if !ok || !card.ValidColumn(col) {
		return image.Rectangle{}, false
	}
	x, y := cellX(col-1), cellY(i)
	return image.Rect(x, y, x+CellWidth, y+CellHeight), true
}

// EncodePNG renders g and writes it to w as PNG.
func EncodePNG(w io.Writer, g card.Grid, opts Options) error {
	if err := png.Encode(w, Render(g, opts)); err != nil {
		return fmt.Errorf("encoding PNG: %w", err)
	}
	return nil
}

func cellX(col int) int { return marginX + col*CellWidth }
func cellY(idx int) int { return headerH + idx*CellHeight }
