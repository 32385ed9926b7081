package metric

import (
	"os"
	"path/filepath"

	"github.com/prometheus/common/expfmt"

	"github.com/ategus/bridginghub/errors"
)

// WriteTextfile dumps every metric family in Prometheus text exposition
// format to path, suitable for the node_exporter textfile collector. The
// file is written next to its destination and renamed into place so a
// concurrent scrape never sees a partial dump.
func (r *Registry) WriteTextfile(path string) error {
	families, err := r.prometheus.Gather()
	if err != nil {
		return errors.Wrap(err, "Registry", "WriteTextfile", "gather metric families")
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".metrics-*.prom")
	if err != nil {
		return errors.Wrap(err, "Registry", "WriteTextfile", "create temp file")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	encoder := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return errors.Wrap(err, "Registry", "WriteTextfile", "encode metric family")
		}
	}

	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "Registry", "WriteTextfile", "flush temp file")
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrap(err, "Registry", "WriteTextfile", "set permissions")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, "Registry", "WriteTextfile", "publish textfile")
	}
	return nil
}
