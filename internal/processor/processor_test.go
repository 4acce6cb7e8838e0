package processor

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/media-uniquer/internal/config"
)

func TestMain(m *testing.M) {
	zlog.Init()
	os.Exit(m.Run())
}

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func skipWithoutShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts are not supported on windows")
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func defaultVideo() config.VideoOptions {
	return config.VideoOptions{
		Contrast: 1.02, Saturation: 1.02,
		Gamma: 1, GammaR: 1, GammaG: 1, GammaB: 1, GammaWeight: 0.4,
		Vibrance: 0.05, EQ: 0.07, FPS: 24,
	}
}

func defaultImage() config.ImageOptions {
	return config.ImageOptions{Brightness: 0.1, Contrast: 0.1, Blur: 0.1}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) percents() []int {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]int, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Percent())
	}
	return out
}

func TestEvent_Percent(t *testing.T) {
	assert.Equal(t, 10, Event{Milestone: 10}.Percent())
	assert.Equal(t, 50, Event{Elapsed: 5 * time.Second, Duration: 10 * time.Second}.Percent())
	assert.Equal(t, 100, Event{Elapsed: 12 * time.Second, Duration: 10 * time.Second}.Percent())
	assert.Equal(t, 0, Event{Milestone: -4}.Percent())
	assert.Equal(t, 0, Event{Elapsed: -time.Second, Duration: 10 * time.Second}.Percent())
	assert.Equal(t, 100, Event{Elapsed: time.Duration(math.MaxInt64), Duration: 10 * time.Second}.Percent())
	assert.Equal(t, 99, Event{Elapsed: 9_999 * time.Hour, Duration: 10_000 * time.Hour}.Percent())
}

func TestImage_ProducesDistinctPNG(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.png")
	out := filepath.Join(dir, "out_unique.png")
	writePNG(t, in)

	p := New(config.FFmpeg{}, defaultVideo(), defaultImage())
	require.NoError(t, p.Image(context.Background(), in, out))

	src, err := os.ReadFile(in)
	require.NoError(t, err)
	dst, err := os.ReadFile(out)
	require.NoError(t, err)

	assert.NotEmpty(t, dst)
	assert.False(t, bytes.Equal(src, dst))
}

func TestImage_BadInput(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(in, []byte("not an image"), 0o644))

	p := New(config.FFmpeg{}, defaultVideo(), defaultImage())
	err := p.Image(context.Background(), in, filepath.Join(dir, "out.png"))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "out.png"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestVideo_Success(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(in, []byte("video"), 0o644))

	ffprobe := writeScript(t, dir, "ffprobe", "echo 10.0\n")
	ffmpeg := writeScript(t, dir, "ffmpeg", `for last; do :; done
echo "frame=1"
echo "out_time_ms=2500000"
echo "out_time_ms=garbage"
echo "out_time_us=5000000"
echo "out_time_ms=N/A"
echo "out_time_ms=9000000"
echo "progress=end"
printf 'encoded' > "$last"
`)

	p := New(config.FFmpeg{FFmpegPath: ffmpeg, FFprobePath: ffprobe, Preset: "fast"}, defaultVideo(), defaultImage())

	var rec recorder
	require.NoError(t, p.Video(context.Background(), in, out, rec.report))

	assert.Equal(t, []int{MilestoneAnalyzing, MilestoneStarting, 25, 50, 90}, rec.percents())

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "encoded", string(data))
}

func TestVideo_ProbeFailure(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(in, []byte("not a video"), 0o644))

	ffprobe := writeScript(t, dir, "ffprobe", "echo 'Invalid data found when processing input' >&2\nexit 1\n")
	ffmpeg := writeScript(t, dir, "ffmpeg", "exit 0\n")

	p := New(config.FFmpeg{FFmpegPath: ffmpeg, FFprobePath: ffprobe}, defaultVideo(), defaultImage())

	var rec recorder
	err := p.Video(context.Background(), in, out, rec.report)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid data found")
	assert.Empty(t, rec.percents())

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVideo_UnparseableDuration(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	require.NoError(t, os.WriteFile(in, []byte("video"), 0o644))

	ffprobe := writeScript(t, dir, "ffprobe", "echo N/A\n")
	p := New(config.FFmpeg{FFmpegPath: "ffmpeg", FFprobePath: ffprobe}, defaultVideo(), defaultImage())

	err := p.Video(context.Background(), in, filepath.Join(dir, "out.mp4"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not parse video duration")
}

func TestVideo_MissingInput(t *testing.T) {
	p := New(config.FFmpeg{}, defaultVideo(), defaultImage())

	err := p.Video(context.Background(), filepath.Join(t.TempDir(), "nope.mp4"), "out.mp4", nil)
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "file not found"))
}

func TestVideo_EncoderFailureRemovesPartialOutput(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(in, []byte("video"), 0o644))

	ffprobe := writeScript(t, dir, "ffprobe", "echo 4\n")
	ffmpeg := writeScript(t, dir, "ffmpeg", `for last; do :; done
printf 'partial' > "$last"
echo "Conversion failed!" >&2
exit 1
`)

	p := New(config.FFmpeg{FFmpegPath: ffmpeg, FFprobePath: ffprobe}, defaultVideo(), defaultImage())

	err := p.Video(context.Background(), in, out, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ffmpeg processing failed: Conversion failed!")

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestVideo_EmptyOutput(t *testing.T) {
	skipWithoutShell(t)

	dir := t.TempDir()
	in := filepath.Join(dir, "in.mp4")
	out := filepath.Join(dir, "out.mp4")
	require.NoError(t, os.WriteFile(in, []byte("video"), 0o644))

	ffprobe := writeScript(t, dir, "ffprobe", "echo 4\n")
	ffmpeg := writeScript(t, dir, "ffmpeg", "for last; do :; done\n: > \"$last\"\n")

	p := New(config.FFmpeg{FFmpegPath: ffmpeg, FFprobePath: ffprobe}, defaultVideo(), defaultImage())

	err := p.Video(context.Background(), in, out, nil)
	require.ErrorIs(t, err, ErrEmptyOutput)

	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}
