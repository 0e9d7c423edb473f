// Package render builds the refresh summary report and its PNG rendering.
package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"countryrates/pkg/domain"
)

const (
	ImageWidth  = 800
	ImageHeight = 400

	originX     = 10
	originY     = 10
	lineSpacing = 4
)

// TimestampLayout formats the refresh time in the report.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatGDP renders an estimate with thousands separators and two decimals,
// or N/A when the estimate is unknown.
func FormatGDP(gdp *float64) string {
	if gdp == nil {
		return "N/A"
	}
	return humanize.FormatFloat("#,###.##", *gdp)
}

// BuildReport produces the fixed-format summary text.
func BuildReport(total int64, top []domain.TopCountry, refreshedAt time.Time) string {
	var b strings.Builder
	b.WriteString("--- Country Data Refresh Summary ---\n")
	fmt.Fprintf(&b, "Total number of countries: %d\n", total)
	fmt.Fprintf(&b, "Timestamp of last refresh: %s UTC\n", refreshedAt.UTC().Format(TimestampLayout))
	b.WriteString("\n")
	b.WriteString("Top 5 Countries by Estimated GDP:\n")
	for _, c := range top {
		fmt.Fprintf(&b, " %d. %s: %s\n", c.Rank, c.Name, FormatGDP(c.EstimatedGDP))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderPNG draws text onto a white 800x400 canvas with the basic 7x13 face
// and returns the encoded PNG. Lines past the bottom edge are clipped.
func RenderPNG(text string) ([]byte, error) {
	img := image.NewRGBA(image.Rect(0, 0, ImageWidth, ImageHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	metrics := face.Metrics()
	lineHeight := metrics.Height.Ceil() + lineSpacing
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	y := originY + metrics.Ascent.Ceil()
	for _, line := range strings.Split(text, "\n") {
		d.Dot = fixed.P(originX, y)
		d.DrawString(line)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode summary png: %w", err)
	}
	return buf.Bytes(), nil
}
