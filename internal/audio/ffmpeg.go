package audio

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationRe     = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+)\.(\d+)`)
	silenceStartRe = regexp.MustCompile(`silence_start:\s*(-?[\d.]+)`)
	silenceEndRe   = regexp.MustCompile(`silence_end:\s*(-?[\d.]+)`)
)

// FFmpeg probes and cuts recordings with the ffmpeg command line tool.
// It implements both Prober and Encoder.
type FFmpeg struct {
	path string

	// Format is the ffmpeg muxer used for clips, "mp3" unless changed
	Format string
}

// NewFFmpeg creates an ffmpeg backend. An empty path means "ffmpeg" from PATH.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{path: path, Format: "mp3"}
}

// IsAvailable checks that the ffmpeg binary can be found
func (f *FFmpeg) IsAvailable() error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("ffmpeg not found at %q: %w", f.path, err)
	}
	return nil
}

// Duration implements Prober
func (f *FFmpeg) Duration(ctx context.Context, path string) (time.Duration, error) {
	// ffmpeg prints the input header on stderr and exits non-zero without an
	// output, so the exit status is not meaningful here
	stderr, _ := f.run(ctx, "-hide_banner", "-i", path)

	d, err := parseDuration(stderr)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return 0, ctxErr
		}
		return 0, err
	}
	return d, nil
}

// Silences implements Prober using the silencedetect filter
func (f *FFmpeg) Silences(ctx context.Context, path string, minSilence time.Duration, threshDB float64) ([]Silence, error) {
	filter := fmt.Sprintf("silencedetect=noise=%sdB:d=%s",
		strconv.FormatFloat(threshDB, 'f', -1, 64),
		formatSeconds(minSilence),
	)

	stderr, err := f.run(ctx, "-hide_banner", "-nostats", "-i", path, "-af", filter, "-f", "null", "-")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("silencedetect failed: %w, stderr: %s", err, lastLine(stderr))
	}

	return parseSilenceOutput(stderr), nil
}

// Encode implements Encoder. The span is re-encoded with a linear fade at
// both ends; the fade is shortened for spans too short to hold two of them.
func (f *FFmpeg) Encode(ctx context.Context, path string, span Span, fade time.Duration) ([]byte, error) {
	length := span.Length()
	if length <= 0 {
		return nil, fmt.Errorf("empty span %v-%v", span.Start, span.End)
	}
	if fade > length/2 {
		fade = length / 2
	}

	args := []string{
		"-hide_banner", "-nostats", "-loglevel", "error",
		"-ss", formatSeconds(span.Start),
		"-t", formatSeconds(length),
		"-i", path,
	}
	if fade > 0 {
		args = append(args, "-af", fmt.Sprintf("afade=t=in:st=0:d=%s,afade=t=out:st=%s:d=%s",
			formatSeconds(fade), formatSeconds(length-fade), formatSeconds(fade)))
	}
	args = append(args, "-f", f.Format, "pipe:1")

	cmd := exec.CommandContext(ctx, f.path, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, stderr: %s", err, strings.TrimSpace(stderr.String()))
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("ffmpeg produced no output for span %v-%v", span.Start, span.End)
	}

	return stdout.Bytes(), nil
}

func (f *FFmpeg) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, f.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.String(), err
}

// parseDuration reads "Duration: HH:MM:SS.frac" from ffmpeg's input header
func parseDuration(output string) (time.Duration, error) {
	m := durationRe.FindStringSubmatch(output)
	if m == nil {
		return 0, fmt.Errorf("could not parse duration from ffmpeg output: %s", lastLine(output))
	}

	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	seconds, _ := strconv.Atoi(m[3])
	frac, _ := strconv.ParseFloat("0."+m[4], 64)

	d := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(math.Round(frac*float64(time.Second)))
	return d, nil
}

// parseSilenceOutput collects silence_start/silence_end pairs. A start with
// no matching end is trailing silence that runs to the end of the stream.
func parseSilenceOutput(output string) []Silence {
	var silences []Silence
	var current time.Duration
	open := false

	for _, line := range strings.Split(output, "\n") {
		if m := silenceStartRe.FindStringSubmatch(line); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				current = secondsToDuration(v)
				open = true
			}
		}

		if m := silenceEndRe.FindStringSubmatch(line); m != nil && open {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				silences = append(silences, Silence{Start: current, End: secondsToDuration(v)})
				open = false
			}
		}
	}

	if open {
		silences = append(silences, Silence{Start: current, End: openEnded})
	}

	return silences
}

func secondsToDuration(sec float64) time.Duration {
	if sec < 0 {
		sec = 0
	}
	return time.Duration(math.Round(sec * float64(time.Second)))
}

func formatSeconds(d time.Duration) string {
	return fmt.Sprintf("%.3f", d.Seconds())
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "\n"); i >= 0 {
		return s[i+1:]
	}
	return s
}

var (
	_ Prober  = (*FFmpeg)(nil)
	_ Encoder = (*FFmpeg)(nil)
)
