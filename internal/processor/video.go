package processor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/zlog"
)

const stderrLimit = 8192

// Milestones reported before encoding starts.
const (
	MilestoneAnalyzing = 10
	MilestoneStarting  = 20
)

// ErrEmptyOutput is returned when ffmpeg exits cleanly but writes nothing.
var ErrEmptyOutput = errors.New("output file is empty")

// Video writes an altered copy of the video at inputPath to outputPath.
//
// report, if not nil, receives the analysis milestones and then one event per
// progress marker ffmpeg emits. On any error the partial output is removed.
func (p *Processor) Video(ctx context.Context, inputPath, outputPath string, report func(Event)) (err error) {
	if report == nil {
		report = func(Event) {}
	}

	if err := checkReadable(inputPath); err != nil {
		return err
	}

	duration, err := p.probeDuration(ctx, inputPath)
	if err != nil {
		return err
	}
	report(Event{Milestone: MilestoneAnalyzing})

	params := SelectVideoParams(p.video)
	report(Event{Milestone: MilestoneStarting})

	zlog.Logger.Info().
		Str("input", inputPath).
		Dur("duration", duration).
		Str("filter", params.Filter()).
		Int("fps", params.FPS).
		Msg("starting video transform")

	defer func() {
		if err != nil {
			if rmErr := os.Remove(outputPath); rmErr != nil && !os.IsNotExist(rmErr) {
				zlog.Logger.Warn().Err(rmErr).Str("output", outputPath).Msg("failed to remove partial output")
			}
		}
	}()

	if err := p.encode(ctx, inputPath, outputPath, params, duration, report); err != nil {
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("output file not created: %w", err)
	}
	if info.Size() == 0 {
		return ErrEmptyOutput
	}

	return nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", path)
		}
		return fmt.Errorf("cannot access file: %s: %w", path, err)
	}
	return f.Close()
}

// probeDuration asks ffprobe for the container duration.
func (p *Processor) probeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-i", path,
		"-show_entries", "format=duration",
		"-v", "error",
		"-of", "csv=p=0",
	)

	stderr := &limitedBuffer{max: stderrLimit}
	cmd.Stderr = stderr

	out, err := cmd.Output()
	if err != nil {
		if msg := stderr.String(); msg != "" {
			return 0, fmt.Errorf("ffprobe error: %s", msg)
		}
		return 0, fmt.Errorf("ffprobe error: %w", err)
	}

	secs, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil || secs <= 0 {
		return 0, errors.New("could not parse video duration")
	}

	return time.Duration(secs * float64(time.Second)), nil
}

func (p *Processor) encode(
	ctx context.Context,
	inputPath, outputPath string,
	params VideoParams,
	duration time.Duration,
	report func(Event),
) error {
	args := []string{
		"-i", inputPath,
		"-vf", params.Filter(),
		"-r", strconv.Itoa(params.FPS),
		"-c:a", "copy",
	}
	if p.preset != "" {
		args = append(args, "-preset", p.preset)
	}
	args = append(args, "-progress", "pipe:1", "-nostats", "-y", outputPath)

	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	stderr := &limitedBuffer{max: stderrLimit}
	cmd.Stderr = stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	scanProgress(stdout, func(elapsed time.Duration) {
		report(Event{Elapsed: elapsed, Duration: duration})
	})

	if err := cmd.Wait(); err != nil {
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("ffmpeg processing failed: %s", msg)
		}
		return fmt.Errorf("ffmpeg processing failed: %w", err)
	}

	return nil
}
