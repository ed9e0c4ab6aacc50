package runlog

import (
	"bytes"
	"fmt"
	"text/tabwriter"
	"time"
)

type duration struct {
	name     string
	duration time.Duration
}

// Durations tracks durations
type Durations []duration

// Record records a duration
func (t *Durations) Record(name string, d time.Duration) {
	*t = append(*t, duration{name, d})
}

// Track returns a func that records the time elapsed since Track was called:
//
//   defer l.Durations.Track("features")()
func (t *Durations) Track(name string) func() {
	start := time.Now()
	return func() {
		t.Record(name, time.Since(start))
	}
}

// Flush writes the recorded durations as an aligned table to the given
// handler and clears them.
func (t *Durations) Flush(i Interface) {
	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 4, 4, 0, ' ', 0)
	var total time.Duration
	for _, entry := range *t {
		fmt.Fprintf(tw, "   %s\t%s\n", entry.name, entry.duration)
		total += entry.duration
	}
	fmt.Fprintf(tw, "   %s\t%s\n", "total", total)
	tw.Flush()

	i.Println(b.String())
	*t = nil
}
