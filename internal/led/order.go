package led

import (
	"fmt"
	"strings"
)

// ColorOrder is the wire order of the color channels, e.g. "GRB".
type ColorOrder string

const (
	RGB ColorOrder = "RGB"
	GRB ColorOrder = "GRB"
)

// ParseColorOrder accepts any permutation of R, G and B, case-insensitive.
func ParseColorOrder(s string) (ColorOrder, error) {
	if s == "" {
		return RGB, nil
	}
	o := ColorOrder(strings.ToUpper(s))
	if len(o) != 3 || !strings.ContainsRune(string(o), 'R') ||
		!strings.ContainsRune(string(o), 'G') || !strings.ContainsRune(string(o), 'B') {
		return "", fmt.Errorf("invalid color order %q", s)
	}
	return o, nil
}

// Encode writes r, g, b into dst[0:3] in order.
func (o ColorOrder) Encode(dst []byte, r, g, b byte) {
	if len(o) != 3 {
		o = RGB
	}
	for i := 0; i < 3; i++ {
		switch o[i] {
		case 'R':
			dst[i] = r
		case 'G':
			dst[i] = g
		default:
			dst[i] = b
		}
	}
}
