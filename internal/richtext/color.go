package richtext

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	hexColorPattern   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	rgbColorPattern   = regexp.MustCompile(`^rgba?\(\s*(\d{1,3})\s*,\s*(\d{1,3})\s*,\s*(\d{1,3})\s*(?:,\s*(?:0|1|0?\.\d+)\s*)?\)$`)
	namedColorPattern = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

// ValidColor reports whether s is a colour token safe to emit in markup:
// a hex colour, rgb()/rgba() or a plain colour name.
func ValidColor(s string) bool {
	s = strings.TrimSpace(s)
	return hexColorPattern.MatchString(s) || rgbColorPattern.MatchString(s) || namedColorPattern.MatchString(s)
}

// parseRGB reads #rgb, #rgba, #rrggbb, #rrggbbaa or rgb(r,g,b). Alpha is ignored.
func parseRGB(s string) (r, g, b int, ok bool) {
	s = strings.TrimSpace(s)

	if m := rgbColorPattern.FindStringSubmatch(s); m != nil {
		vals := [3]int{}
		for i := 0; i < 3; i++ {
			v, err := strconv.Atoi(m[i+1])
			if err != nil || v > 255 {
				return 0, 0, 0, false
			}
			vals[i] = v
		}
		return vals[0], vals[1], vals[2], true
	}

	if !hexColorPattern.MatchString(s) {
		return 0, 0, 0, false
	}
	hex := s[1:]
	if len(hex) == 3 || len(hex) == 4 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex[:6], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}

// linear converts one 0-255 sRGB channel to linear light
func linear(c int) float64 {
	v := float64(c) / 255
	if v <= 0.03928 {
		return v / 12.92
	}
	return math.Pow((v+0.055)/1.055, 2.4)
}

// Luminance returns the relative luminance of an sRGB colour.
func Luminance(r, g, b int) float64 {
	return 0.2126*linear(r) + 0.7152*linear(g) + 0.0722*linear(b)
}

// SpoilerColor derives the patch colour that hides spoiler text on a bubble
// of the given background. Dark bubbles get a lighter patch (x1.8, capped at
// 255), light bubbles a darker one (x0.5). Unparseable colours count as black.
func SpoilerColor(background string) string {
	r, g, b, ok := parseRGB(background)
	if !ok {
		r, g, b = 0, 0, 0
	}

	factor := 0.5
	if Luminance(r, g, b) < 0.5 {
		factor = 1.8
	}

	scale := func(c int) int {
		return int(math.Min(255, math.Round(float64(c)*factor)))
	}
	return fmt.Sprintf("#%02x%02x%02x", scale(r), scale(g), scale(b))
}
