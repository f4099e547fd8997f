package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Progress holds the markers extracted from one ffmpeg diagnostic line.
// Fields are zero/empty when the line did not carry them.
type Progress struct {
	Frame   int64
	FPS     float64
	Time    time.Duration
	Bitrate string
	Size    string
	Speed   string
}

var (
	frameRe   = regexp.MustCompile(`frame=\s*(\d+)`)
	fpsRe     = regexp.MustCompile(`fps=\s*([\d.]+)`)
	timeRe    = regexp.MustCompile(`time=(\d{2,}):(\d{2}):(\d{2})\.(\d{2})`)
	bitrateRe = regexp.MustCompile(`bitrate=\s*([\d.]+\s*[kKmMgG]?bits/s)`)
	sizeRe    = regexp.MustCompile(`size=\s*(\d+\s*[kKmMgG]?B)`)
	speedRe   = regexp.MustCompile(`speed=\s*([\d.]+x)`)
)

// ParseProgress scans one stderr line for ffmpeg progress markers. It returns
// nil when the line carries none, which is the common case for the codec and
// stream-mapping banner lines.
func ParseProgress(line string) *Progress {
	var p Progress
	found := false

	if m := frameRe.FindStringSubmatch(line); m != nil {
		p.Frame, _ = strconv.ParseInt(m[1], 10, 64)
		found = true
	}
	if m := fpsRe.FindStringSubmatch(line); m != nil {
		p.FPS, _ = strconv.ParseFloat(m[1], 64)
		found = true
	}
	if m := timeRe.FindStringSubmatch(line); m != nil {
		hours, _ := strconv.Atoi(m[1])
		mins, _ := strconv.Atoi(m[2])
		secs, _ := strconv.Atoi(m[3])
		centis, _ := strconv.Atoi(m[4])
		p.Time = time.Duration(hours)*time.Hour +
			time.Duration(mins)*time.Minute +
			time.Duration(secs)*time.Second +
			time.Duration(centis)*10*time.Millisecond
		found = true
	}
	if m := bitrateRe.FindStringSubmatch(line); m != nil {
		p.Bitrate = strings.TrimSpace(m[1])
		found = true
	}
	if m := sizeRe.FindStringSubmatch(line); m != nil {
		p.Size = strings.TrimSpace(m[1])
		found = true
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		p.Speed = m[1]
		found = true
	}

	if !found {
		return nil
	}
	return &p
}

// String renders the progress markers the way they are shown to the user.
func (p *Progress) String() string {
	var parts []string
	if p.Time > 0 {
		parts = append(parts, "Time: "+formatClock(p.Time))
	}
	if p.Frame > 0 {
		parts = append(parts, "Frame: "+strconv.FormatInt(p.Frame, 10))
	}
	if p.FPS > 0 {
		parts = append(parts, "FPS: "+strconv.FormatFloat(p.FPS, 'f', 1, 64))
	}
	if p.Bitrate != "" {
		parts = append(parts, "Bitrate: "+p.Bitrate)
	}
	if p.Size != "" {
		parts = append(parts, "Size: "+p.Size)
	}
	if p.Speed != "" {
		parts = append(parts, "Speed: "+p.Speed)
	}
	return strings.Join(parts, " | ")
}

func formatClock(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return strconv.Itoa(h) + "h" + strconv.Itoa(m) + "m" + strconv.Itoa(s) + "s"
}
