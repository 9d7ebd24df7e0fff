// ABOUTME: ANSI half-block preview of a rendered card for terminals with true color
// ABOUTME: Each text line carries two pixel rows using ▄ with fg/bg escapes

package cardimage

import (
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// HalfBlock converts img to ANSI art no wider than maxCols cells.
// Transparent pixels print as the terminal default background.
func HalfBlock(img image.Image, maxCols int) []string {
	bounds := img.Bounds()
	srcW, srcH := bounds.Dx(), bounds.Dy()
	if srcW == 0 || srcH == 0 || maxCols <= 0 {
		return nil
	}

	targetW, targetH := srcW, srcH
	if targetW > maxCols {
		targetH = max(targetH*maxCols/targetW, 1)
		targetW = maxCols
	}

	scaled := img
	if targetW != srcW || targetH != srcH {
		dst := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		scaled = dst
	}
	origin := scaled.Bounds().Min

	lines := make([]string, 0, (targetH+1)/2)
	for y := 0; y < targetH; y += 2 {
		var b strings.Builder
		for x := range targetW {
			top, topOK := rgbAt(scaled, origin.X+x, origin.Y+y)
			bot, botOK := [3]uint8{}, false
			if y+1 < targetH {
				bot, botOK = rgbAt(scaled, origin.X+x, origin.Y+y+1)
			}
			switch {
			case !topOK && !botOK:
				b.WriteString("\x1b[0m ")
			case !topOK:
				fmt.Fprintf(&b, "\x1b[49m\x1b[38;2;%d;%d;%dm▄", bot[0], bot[1], bot[2])
			case !botOK:
				fmt.Fprintf(&b, "\x1b[49m\x1b[38;2;%d;%d;%dm▀", top[0], top[1], top[2])
			default:
				fmt.Fprintf(&b, "\x1b[48;2;%d;%d;%dm\x1b[38;2;%d;%d;%dm▄",
					top[0], top[1], top[2], bot[0], bot[1], bot[2])
			}
		}
		b.WriteString("\x1b[0m")
		lines = append(lines, b.String())
	}
	return lines
}

// rgbAt returns the 8-bit color at (x, y) and false for mostly transparent pixels.
func rgbAt(img image.Image, x, y int) ([3]uint8, bool) {
	r, g, b, a := img.At(x, y).RGBA()
	if a < 0x8000 {
		return [3]uint8{}, false
	}
	return [3]uint8{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}, true
}
