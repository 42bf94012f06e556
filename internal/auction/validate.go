package auction

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/talkincode/auctions/pkg/common"
)

// Column sizes of the stored text fields, counted in characters
const (
	MaxNameLength     = 64
	MaxUsernameLength = 150
	MaxEmailLength    = 254
)

// DefaultMaxImageSize is the exclusive upper bound for uploaded image sizes
const DefaultMaxImageSize int64 = 2100000

var imageExts = []string{".jpg", ".jpeg", ".png"}

// NameIsValid reports whether name has at least one non blank character
func NameIsValid(name string) bool {
	return len(strings.TrimSpace(name)) > 0
}

// withinLength reports whether the trimmed s fits in max characters
func withinLength(s string, max int) bool {
	return utf8.RuneCountInString(strings.TrimSpace(s)) <= max
}

// ParsePrice parses a positive price rounded to two decimals
func ParsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(v) || v <= 0 {
		return 0, ErrInvalidPrice
	}
	v = common.Round2(v)
	if v <= 0 {
		return 0, ErrInvalidPrice
	}
	return v, nil
}

// ParseBid parses a bid amount rounded to two decimals
func ParseBid(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !finite(v) {
		return 0, ErrInvalidBid
	}
	return common.Round2(v), nil
}

// ImageIsValid checks an upload against the default size limit. An empty name
// means no image and is valid.
func ImageIsValid(name string, size int64) bool {
	return imageWithin(name, size, DefaultMaxImageSize)
}

func imageWithin(name string, size, limit int64) bool {
	if name == "" {
		return true
	}
	tail := name
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	tail = strings.ToLower(tail)
	for _, ext := range imageExts {
		if strings.Contains(tail, ext) {
			return size < limit
		}
	}
	return false
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
