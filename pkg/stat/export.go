// Copyright 2026 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package stat

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/syztrace/pkg/osutil"
	"github.com/prometheus/client_golang/prometheus"
)

// WriteTextfile dumps all Prometheus-exported metrics in the text exposition format,
// suitable for the node_exporter textfile collector. The harness exits right after
// a run, so there is no endpoint to scrape.
func WriteTextfile(filename string) error {
	if err := osutil.MkdirAll(filepath.Dir(filename)); err != nil {
		return err
	}
	if err := prometheus.WriteToTextfile(filename, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Summary formats metrics of at least the given level as "name: value" lines.
func Summary(level Level) string {
	buf := new(strings.Builder)
	for _, ui := range Collect(level) {
		fmt.Fprintf(buf, "%-24v: %v\n", ui.Name, ui.Value)
	}
	return buf.String()
}
