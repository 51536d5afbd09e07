package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Options configures the progress reporter.
type Options struct {
	// Label names the transfer in the output, usually the destination path.
	Label string

	// Output is where to write progress output.
	// Default: os.Stderr
	Output io.Writer

	// UpdateInterval is how often to update the progress display.
	// Default: 500ms
	UpdateInterval time.Duration
}

// Reporter prints human-readable progress for a single file transfer.
// It satisfies downloader.Progress.
type Reporter struct {
	opts Options

	mu         sync.Mutex
	total      int64
	resumed    int64
	written    atomic.Int64
	startTime  time.Time
	lastUpdate time.Time
	lastBytes  int64
	started    bool
	stopped    bool
	stopCh     chan struct{}
	doneCh     chan struct{}
}

// NewReporter creates a new progress reporter.
func NewReporter(opts Options) *Reporter {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	if opts.UpdateInterval == 0 {
		opts.UpdateInterval = 500 * time.Millisecond
	}

	return &Reporter{
		opts:   opts,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins outputting progress. total is -1 when the size is unknown;
// resumed is the number of bytes already on disk.
func (r *Reporter) Start(total, resumed int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.total = total
	r.resumed = resumed
	r.written.Store(resumed)
	r.startTime = time.Now()
	r.lastUpdate = r.startTime
	r.lastBytes = resumed

	if resumed > 0 {
		fmt.Fprintf(r.opts.Output, "[crunch] Resuming %s at %s\n", r.opts.Label, humanize.IBytes(uint64(resumed)))
	} else {
		fmt.Fprintf(r.opts.Output, "[crunch] Downloading %s (%s)\n", r.opts.Label, r.formatTotal())
	}

	go r.updateLoop()
}

// Add records n more bytes written.
func (r *Reporter) Add(n int64) {
	r.written.Add(n)
}

// Stop stops the reporter and prints the final status. It is safe to call
// more than once and without a prior Start.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	started := r.started
	r.mu.Unlock()

	close(r.stopCh)
	if started {
		<-r.doneCh
	}
}

// Written returns the number of bytes of the file present so far.
func (r *Reporter) Written() int64 {
	return r.written.Load()
}

func (r *Reporter) updateLoop() {
	defer close(r.doneCh)

	ticker := time.NewTicker(r.opts.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			r.printFinalStatus()
			return
		case <-ticker.C:
			r.printProgress()
		}
	}
}

func (r *Reporter) printProgress() {
	now := time.Now()
	written := r.written.Load()

	elapsed := now.Sub(r.lastUpdate).Seconds()
	if elapsed < 0.1 {
		elapsed = 0.1
	}
	speed := float64(written-r.lastBytes) / elapsed
	r.lastUpdate = now
	r.lastBytes = written

	if r.total <= 0 {
		fmt.Fprintf(r.opts.Output, "\r[crunch] %s | Speed: %s/s    ",
			humanize.IBytes(uint64(written)),
			humanize.IBytes(uint64(speed)),
		)
		return
	}

	percent := float64(written) / float64(r.total) * 100
	eta := "calculating..."
	if speed > 0 {
		remaining := float64(r.total - written)
		eta = formatDuration(time.Duration(remaining / speed * float64(time.Second)))
	}

	fmt.Fprintf(r.opts.Output, "\r[crunch] Progress: %.1f%% | %s / %s | Speed: %s/s | ETA: %s    ",
		percent,
		humanize.IBytes(uint64(written)),
		humanize.IBytes(uint64(r.total)),
		humanize.IBytes(uint64(speed)),
		eta,
	)
}

func (r *Reporter) printFinalStatus() {
	written := r.written.Load()
	duration := time.Since(r.startTime)
	transferred := written - r.resumed
	avgSpeed := float64(transferred) / duration.Seconds()
	if duration <= 0 {
		avgSpeed = 0
	}

	fmt.Fprintf(r.opts.Output, "\r[crunch] %s: %s in %s | Average speed: %s/s    \n",
		r.opts.Label,
		humanize.IBytes(uint64(written)),
		formatDuration(duration),
		humanize.IBytes(uint64(avgSpeed)),
	)
}

func (r *Reporter) formatTotal() string {
	if r.total < 0 {
		return "unknown size"
	}
	return humanize.IBytes(uint64(r.total))
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm %ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh %dm %ds", h, m, s)
}

// FormatBytes formats b using IEC units, e.g. "1.5 KiB".
func FormatBytes(b int64) string {
	if b < 0 {
		return "unknown"
	}
	return humanize.IBytes(uint64(b))
}

// ParseBytes parses a human-readable byte string such as "256MiB" or "1KB".
// IEC suffixes are powers of 1024, SI suffixes powers of 1000.
func ParseBytes(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid byte string: %s", s)
	}
	return int64(n), nil
}
