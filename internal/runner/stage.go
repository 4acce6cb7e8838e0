package runner

// Stage labels shown to polling clients.
const (
	StageInitializing = "Initializing"
	StageComplete     = "Processing complete"
)

var stageBands = []struct {
	upTo  int // exclusive upper bound
	label string
}{
	{11, "Analyzing file"},
	{21, "Starting process"},
	{30, "Applying contrast adjustments"},
	{45, "Processing saturation"},
	{60, "Applying rotation effects"},
	{75, "Adjusting frame rate"},
	{90, "Encoding video"},
	{100, "Finalizing video"},
}

// StageFor maps a progress percentage onto its display label.
func StageFor(progress int) string {
	if progress <= 0 {
		return StageInitializing
	}

	for _, b := range stageBands {
		if progress < b.upTo {
			return b.label
		}
	}

	return StageComplete
}
