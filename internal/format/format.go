// Package format provides parsing and formatting of human-readable size and
// resolution tokens.
package format

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var sizePattern = regexp.MustCompile(`^([\d.]+)\s*([KMGT]?B?)$`)

// sizeUnits maps a unit token to its byte multiplier (binary, 1024-based).
var sizeUnits = map[string]int64{
	"B":  1,
	"K":  1 << 10,
	"KB": 1 << 10,
	"M":  1 << 20,
	"MB": 1 << 20,
	"G":  1 << 30,
	"GB": 1 << 30,
	"T":  1 << 40,
	"TB": 1 << 40,
}

// namedResolutions maps resolution preset names to width/height.
var namedResolutions = map[string][2]int{
	"480p":  {854, 480},
	"720p":  {1280, 720},
	"1080p": {1920, 1080},
	"1440p": {2560, 1440},
	"2160p": {3840, 2160},
	"2k":    {2048, 1080},
	"4k":    {3840, 2160},
	"8k":    {7680, 4320},
}

var resolutionPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ParseSize parses a human-readable size token such as "10MB" or "1.5GB" into
// a byte count. Units are case-insensitive with a 1024 multiplier; a bare
// number is taken as bytes.
func ParseSize(token string) (int64, error) {
	s := strings.ToUpper(strings.TrimSpace(token))
	if s == "" {
		return 0, fmt.Errorf("invalid size: empty string")
	}

	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid size format: %q (expected e.g. \"10MB\", \"1.5GB\", \"500KB\")", token)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric value in size %q", token)
	}
	if value < 0 {
		return 0, fmt.Errorf("size cannot be negative: %q", token)
	}

	unit := m[2]
	if unit == "" {
		unit = "B"
	}
	mult, ok := sizeUnits[unit]
	if !ok {
		return 0, fmt.Errorf("invalid size unit %q (supported: B, KB, MB, GB, TB)", unit)
	}

	return int64(value * float64(mult)), nil
}

// ParseResolution parses a resolution token into width and height. Accepted
// forms are explicit "WIDTHxHEIGHT" and the named presets 480p, 720p, 1080p,
// 1440p, 2160p, 2k, 4k and 8k (case-insensitive).
func ParseResolution(token string) (width, height int, err error) {
	s := strings.ToLower(strings.TrimSpace(token))
	if s == "" {
		return 0, 0, fmt.Errorf("invalid resolution: empty string")
	}

	if wh, ok := namedResolutions[s]; ok {
		return wh[0], wh[1], nil
	}

	m := resolutionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("invalid resolution format: %q (expected e.g. \"1920x1080\", \"1080p\", \"4k\")", token)
	}

	width, _ = strconv.Atoi(m[1])
	height, _ = strconv.Atoi(m[2])
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("resolution dimensions must be positive: %q", token)
	}

	return width, height, nil
}

// FormatSize returns a human-readable string for a byte count.
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
