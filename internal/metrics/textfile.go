package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Textfile is a Collector for one-shot processes: nothing scrapes them, so the
// gathered values are written once, at exit, in the text exposition format
// read by node_exporter's textfile collector.
type Textfile struct {
	*Collector
	path string
	reg  *prometheus.Registry
}

// NewTextfile creates collectors on a private registry bound to path.
// Parameters:
//   - path: destination file, typically ending in .prom.
// Returns:
//   - *Textfile: collectors plus the registry to dump.
//   - error: non-nil if registration fails.
func NewTextfile(path string) (*Textfile, error) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	if err != nil {
		return nil, err
	}
	return &Textfile{Collector: c, path: path, reg: reg}, nil
}

// Write replaces the file with the current values.
func (t *Textfile) Write() error {
	return prometheus.WriteToTextfile(t.path, t.reg)
}
