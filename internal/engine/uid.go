package engine

import (
	"strings"
	"unicode"

	sync "github.com/sasha-s/go-deadlock"
)

var (
	uidMu    sync.Mutex
	uidCount = map[string]int{}
)

// GetUID increments and returns the counter for prefix. Counters are
// process-wide and start at 1.
func GetUID(prefix string) int {
	uidMu.Lock()
	defer uidMu.Unlock()
	uidCount[prefix]++
	return uidCount[prefix]
}

// ResetUIDs clears all name counters.
func ResetUIDs() {
	uidMu.Lock()
	defer uidMu.Unlock()
	uidCount = map[string]int{}
}

// snakeCase converts a class name to its default layer-name prefix:
// "Dense" -> "dense", "MaxPooling2D" -> "max_pooling2d",
// "Conv2DTranspose" -> "conv2d_transpose".
func snakeCase(name string) string {
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			prevUpper := i > 0 && unicode.IsUpper(runes[i-1])
			if prevLower || (prevUpper && nextLower) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
