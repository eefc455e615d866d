// Package formats renders run findings as text, JSON, YAML or SARIF.
package formats

import (
	"fmt"
	"sort"
	"strings"

	"wlscope/internal/core/ports"
)

var writers = map[string]ports.ReportWriter{
	"text":  TextWriter{},
	"json":  JSONWriter{},
	"yaml":  YAMLWriter{},
	"sarif": SARIFWriter{},
}

// New returns the writer for a format name.
func New(format string) (ports.ReportWriter, error) {
	w, ok := writers[strings.ToLower(strings.TrimSpace(format))]
	if !ok {
		return nil, fmt.Errorf("unknown report format %q (want one of %s)", format, strings.Join(Names(), ", "))
	}
	return w, nil
}

// Names lists the supported formats.
func Names() []string {
	names := make([]string, 0, len(writers))
	for name := range writers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
