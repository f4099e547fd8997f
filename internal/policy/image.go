package policy

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// imageArgs builds the tool invocation for an image job. Unless the run
// preserves formats, every image is re-encoded as JPEG; PNG and WebP sources
// are flattened to RGB first because JPEG has no alpha channel.
func (e *Engine) imageArgs(inPath, outPath string) []string {
	inExt := strings.ToLower(filepath.Ext(inPath))
	args := []string{"-i", inPath}

	var filters []string
	convertingToJPEG := !e.cfg.PreserveFormat && isJPEGExt(filepath.Ext(outPath))
	if convertingToJPEG && (inExt == ".png" || inExt == ".webp") {
		filters = append(filters, "format=rgb24")
	}
	if pct := e.cfg.Image.ResizePercent; pct > 0 && pct < 100 {
		factor := float64(pct) / 100
		filters = append(filters, fmt.Sprintf("scale=iw*%g:ih*%g:flags=lanczos", factor, factor))
	}
	if len(filters) > 0 {
		args = append(args, "-vf", strings.Join(filters, ","))
	}

	switch {
	case convertingToJPEG:
		args = append(args, "-q:v", strconv.Itoa(jpegScale(mapJPEGQuality(e.cfg.Image.Quality))))
	case inExt == ".png":
		args = append(args, "-compression_level", strconv.Itoa(pngCompressionLevel(e.cfg.Image.Quality)))
	case inExt == ".webp":
		args = append(args, "-quality", strconv.Itoa(mapJPEGQuality(e.cfg.Image.Quality)))
	default:
		args = append(args, "-q:v", strconv.Itoa(jpegScale(mapJPEGQuality(e.cfg.Image.Quality))))
	}

	args = append(args, "-y", outPath)
	return args
}

// mapJPEGQuality maps the user-facing 0-100 quality to the 1-95 range the
// JPEG and WebP encoders accept; 100 caps at 95 to avoid pathological file
// growth at the top of the scale.
func mapJPEGQuality(quality int) int {
	switch {
	case quality >= 100:
		return 95
	case quality >= 95:
		return quality - 5
	default:
		q := quality * 90 / 94
		if q < 1 {
			q = 1
		}
		if q > 90 {
			q = 90
		}
		return q
	}
}

// jpegScale converts a 0-100 quality to ffmpeg's inverted 2-31 -q:v scale.
func jpegScale(quality int) int {
	q := 2 + (31-2)*(100-quality)/100
	if q < 2 {
		q = 2
	}
	if q > 31 {
		q = 31
	}
	return q
}

// pngCompressionLevel maps 0-100 quality to the PNG encoder's 0-9 zlib
// level. Levels below 6 compress too little to be worth the pass, so the
// upper quality band is remapped into 6-9.
func pngCompressionLevel(quality int) int {
	var level int
	if quality >= 80 {
		level = 6 + (quality-80)*3/20
	} else {
		level = quality * 6 / 80
	}
	if level < 0 {
		level = 0
	}
	if level > 9 {
		level = 9
	}
	return level
}
