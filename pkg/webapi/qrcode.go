package webapi

import (
	"encoding/hex"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

// GenerateQRCodePNG renders content as a PNG; fg and bg are optional
// "rrggbb" colours.
func GenerateQRCodePNG(content string, size int, fg string, bg string) ([]byte, error) {
	q, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return []byte{}, err
	}
	if c, ok := parseColor(fg); ok {
		q.ForegroundColor = c
	}
	if c, ok := parseColor(bg); ok {
		q.BackgroundColor = c
	}
	return q.PNG(size)
}

func parseColor(s string) (color.Color, bool) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 3 {
		return nil, false
	}
	return color.RGBA{R: b[0], G: b[1], B: b[2], A: 0xff}, true
}
