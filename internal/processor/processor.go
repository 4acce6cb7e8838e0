package processor

import (
	"time"

	"github.com/aliskhannn/media-uniquer/internal/config"
)

// Event is a single progress report from a running transform.
//
// Before encoding starts the engine reports fixed milestones; during
// encoding it reports how much media time has been written so far
// relative to the probed duration.
type Event struct {
	Milestone int
	Elapsed   time.Duration
	Duration  time.Duration
}

// Percent maps the event onto 0..100.
func (e Event) Percent() int {
	if e.Duration <= 0 {
		return max(0, min(100, e.Milestone))
	}

	f := float64(e.Elapsed) / float64(e.Duration) * 100
	return int(max(0, min(100, f)))
}

// Processor is the transform engine: it produces a byte-distinct copy of an
// image or a video using imaging/gg for stills and ffmpeg for video.
type Processor struct {
	ffmpegPath  string
	ffprobePath string
	preset      string
	video       config.VideoOptions
	image       config.ImageOptions
}

// New creates a new Processor. Options are clamped again so that a
// Processor built outside config.Load never uses unsafe values.
func New(ff config.FFmpeg, video config.VideoOptions, image config.ImageOptions) *Processor {
	return &Processor{
		ffmpegPath:  ff.FFmpegPath,
		ffprobePath: ff.FFprobePath,
		preset:      ff.Preset,
		video:       video.Clamp(),
		image:       image.Clamp(),
	}
}
