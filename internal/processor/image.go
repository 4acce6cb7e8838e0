package processor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/wb-go/wbf/zlog"
)

// Image writes a subtly altered PNG copy of the image at inputPath to
// outputPath. The call is synchronous and reports no progress.
func (p *Processor) Image(ctx context.Context, inputPath, outputPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Load and decode the original image.
	src, err := imaging.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	// Soften, brighten and add contrast by tiny amounts.
	img := imaging.Blur(src, p.image.Blur)
	img = imaging.AdjustBrightness(img, p.image.Brightness)
	img = imaging.AdjustContrast(img, p.image.Contrast)

	// Flip the low bit of one random pixel so the output never matches the
	// input even when the adjustments round away.
	dc := gg.NewContextForImage(img)
	if dc.Width() > 0 && dc.Height() > 0 {
		x, y := rand.IntN(dc.Width()), rand.IntN(dc.Height())
		r, g, b, _ := dc.Image().At(x, y).RGBA()
		dc.SetRGBA255(int(r>>8)^1, int(g>>8), int(b>>8), 255)
		dc.SetPixel(x, y)
	}

	if err := imaging.Save(dc.Image(), outputPath); err != nil {
		os.Remove(outputPath)
		return fmt.Errorf("failed to save image: %w", err)
	}

	zlog.Logger.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Msg("image processed")

	return nil
}
