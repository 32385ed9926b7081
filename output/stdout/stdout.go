// Package stdout implements a sender that writes each record as one JSON
// line to standard output.
package stdout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "StdoutSender"
	location  = "github.com/ategus/bridginghub/output/stdout"
)

// Sender emits records in sorted id order, one JSON object per line, and
// stamps every emitted record with status out. A write failure aborts the
// pass so the remaining records stay staged.
type Sender struct {
	segment string
	logger  *slog.Logger
	writer  io.Writer

	settings   stage.Settings
	configured bool
}

var _ stage.Output = (*Sender)(nil)

// New creates an unconfigured stdout sender for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Sender{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
		writer:  os.Stdout,
	}, nil
}

// Register adds the StdoutSender implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeOutput,
		Description: "Writes records as JSON lines to standard output",
		Version:     "1.0.0",
		Factory:     New,
	})
}

// Meta describes this stage instance.
func (s *Sender) Meta() stage.Metadata {
	return stage.Metadata{
		Segment:     s.segment,
		Class:       className,
		Type:        config.TypeOutput,
		Description: "Writes records as JSON lines to standard output",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings. The sender has no keys of its
// own beyond the shared data section.
func (s *Sender) Configure(cfg *config.Config) error {
	if s.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, s.segment, config.TypeOutput)
	if err != nil {
		return err
	}
	s.settings = settings
	s.configured = true
	return nil
}

// Dispatch returns the send callable in output and bridge contexts.
func (s *Sender) Dispatch(rc stage.RunContext) (stage.Callable, error) {
	if !s.configured {
		return nil, errors.WrapConfig(errors.ErrMissingConfig, className, "Dispatch", "dispatch unconfigured stage")
	}
	return stage.DispatchOutput(s, rc)
}

// Send writes one line per record. The line shows the record as it arrived,
// with the provenance still readable from its status field; the stamp to
// out happens after the write.
func (s *Sender) Send(_ context.Context, batch record.Batch) (record.Batch, error) {
	names := s.settings.Names
	out := record.Batch{}

	for _, id := range batch.IDs() {
		rec := batch[id]

		line, err := json.Marshal(rec)
		if err != nil {
			return nil, errors.WrapOutput(err, className, "Send", "encode record "+id)
		}
		if _, err := s.writer.Write(append(line, '\n')); err != nil {
			return nil, errors.WrapOutput(err, className, "Send", "write record "+id)
		}

		s.logger.Debug("record sent", "id", id, "source", sourceOf(names.Get(rec, record.FieldStatus)))
		names.Set(rec, record.FieldStatus, record.StatusOut)
		out[id] = rec
	}

	return out, nil
}

// sourceOf names the hop a record arrived from: fresh collections carry
// status in, staged records status cached.
func sourceOf(status string) string {
	if status == record.StatusIn {
		return "input"
	}
	return "buffer"
}
