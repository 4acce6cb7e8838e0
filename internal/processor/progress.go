package processor

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ffmpeg -progress emits key=value lines; both keys carry microseconds.
var progressKeys = []string{"out_time_us=", "out_time_ms="}

// scanProgress reads ffmpeg -progress output from r until EOF and calls fn
// with the encoded media time of every well-formed marker. Malformed lines
// are skipped.
func scanProgress(r io.Reader, fn func(elapsed time.Duration)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if elapsed, ok := parseProgressLine(sc.Text()); ok {
			fn(elapsed)
		}
	}

	// Keep draining so the process never blocks on a full pipe.
	io.Copy(io.Discard, r)
}

func parseProgressLine(line string) (time.Duration, bool) {
	line = strings.TrimSpace(line)

	for _, key := range progressKeys {
		v, ok := strings.CutPrefix(line, key)
		if !ok {
			continue
		}

		us, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || us < 0 || us > math.MaxInt64/int64(time.Microsecond) {
			return 0, false
		}

		return time.Duration(us) * time.Microsecond, true
	}

	return 0, false
}

// limitedBuffer is a thread-safe buffer that keeps only the last N bytes.
// Used to capture ffmpeg stderr without unbounded memory usage.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	if b.buf.Len() > b.max {
		data := b.buf.Bytes()
		tail := append([]byte(nil), data[len(data)-b.max:]...)
		b.buf.Reset()
		b.buf.Write(tail)
	}
	return n, err
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
