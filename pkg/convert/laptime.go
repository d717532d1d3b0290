package convert

import (
	"fmt"
	"regexp"
	"strconv"
)

// The provider encodes lap and sector times as "m:ss.cc" or "ss.cc"
// with a two digit centisecond fraction (not milliseconds). A parsed
// fraction therefore scales by 10 to yield milliseconds.
var laptimePattern = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2})\.(\d{2})$`)

// ParseLaptime converts a provider time string to integer milliseconds.
func ParseLaptime(s string) (int, error) {
	m := laptimePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid laptime %q", s)
	}
	minutes := 0
	if m[1] != "" {
		minutes, _ = strconv.Atoi(m[1])
	}
	seconds, _ := strconv.Atoi(m[2])
	centis, _ := strconv.Atoi(m[3])
	return minutes*60*1000 + seconds*1000 + centis*10, nil
}

// FormatLaptime renders milliseconds at centisecond precision, the
// inverse of ParseLaptime. Values below one minute omit the minute part.
func FormatLaptime(ms int) string {
	minutes := ms / 60000
	seconds := (ms % 60000) / 1000
	centis := (ms % 1000) / 10
	if minutes > 0 {
		return fmt.Sprintf("%d:%02d.%02d", minutes, seconds, centis)
	}
	return fmt.Sprintf("%d.%02d", seconds, centis)
}
