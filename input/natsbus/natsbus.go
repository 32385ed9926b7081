// Package natsbus implements a collector that drains measurements from a
// NATS subject. The subject's final token names the registered record-id
// the payload belongs to, e.g. measurements.cellar.p1 feeds record-id p1.
package natsbus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/pkg/timestamp"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "NATSCollector"
	location  = "github.com/ategus/bridginghub/input/natsbus"
)

// Config holds the drain parameters of one NATSCollector segment.
type Config struct {
	// URL of the NATS server.
	URL string `json:"url"`

	// Subject to subscribe to, usually with a wildcard final token so one
	// segment serves several record-ids.
	Subject string `json:"subject"`

	// MaxMessages bounds how many records one pass accepts.
	MaxMessages int `json:"max_messages"`

	// ReadTimeout bounds how long one pass waits, in seconds.
	ReadTimeout float64 `json:"read_timeout"`
}

// DefaultConfig returns the default drain parameters.
func DefaultConfig() Config {
	return Config{
		URL:         nats.DefaultURL,
		MaxMessages: 10,
		ReadTimeout: 1.0,
	}
}

func parseConfig(detail map[string]any) Config {
	cfg := DefaultConfig()
	cfg.URL = config.GetString(detail, "url", cfg.URL)
	cfg.Subject = config.GetString(detail, "subject", "")
	cfg.MaxMessages = config.GetInt(detail, "max_messages", cfg.MaxMessages)
	cfg.ReadTimeout = config.GetFloat64(detail, "read_timeout", cfg.ReadTimeout)
	return cfg
}

// Validate checks the drain parameters.
func (c Config) Validate() error {
	if c.Subject == "" {
		return fmt.Errorf("%w: subject", errors.ErrMissingConfig)
	}
	if c.MaxMessages <= 0 {
		return fmt.Errorf("%w: max_messages must be positive, got %d", errors.ErrInvalidConfig, c.MaxMessages)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("%w: read_timeout must be positive, got %v", errors.ErrInvalidConfig, c.ReadTimeout)
	}
	return nil
}

// readTimeout returns the configured timeout as a duration.
func (c Config) readTimeout() time.Duration {
	return time.Duration(c.ReadTimeout * float64(time.Second))
}

// Collector synchronously drains a NATS subject for one pass: it connects,
// collects until max_messages records are accepted or read_timeout elapses,
// and closes the connection again. Messages whose subject does not end in a
// registered record-id are skipped.
type Collector struct {
	segment string
	logger  *slog.Logger

	settings   stage.Settings
	config     Config
	configured bool
}

var _ stage.Input = (*Collector)(nil)

// New creates an unconfigured NATS collector for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Collector{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
	}, nil
}

// Register adds the NATSCollector implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeInput,
		Description: "Drains measurements from a NATS subject",
		Version:     "1.0.0",
		Factory:     New,
	})
}

// Meta describes this stage instance.
func (c *Collector) Meta() stage.Metadata {
	return stage.Metadata{
		Segment:     c.segment,
		Class:       className,
		Type:        config.TypeInput,
		Description: "Drains measurements from a NATS subject",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings and drain parameters.
func (c *Collector) Configure(cfg *config.Config) error {
	if c.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, c.segment, config.TypeInput)
	if err != nil {
		return err
	}

	busCfg := parseConfig(settings.Segment.Detail)
	if err := busCfg.Validate(); err != nil {
		return errors.WrapConfig(err, className, "Configure", "validate drain parameters")
	}

	c.settings = settings
	c.config = busCfg
	c.configured = true
	return nil
}

// Dispatch returns the collect callable in input and bridge contexts.
func (c *Collector) Dispatch(rc stage.RunContext) (stage.Callable, error) {
	if !c.configured {
		return nil, errors.WrapConfig(errors.ErrMissingConfig, className, "Dispatch", "dispatch unconfigured stage")
	}
	return stage.DispatchInput(c, rc)
}

// Collect connects, drains and disconnects. A later message for an id
// already collected in this pass replaces the earlier one; the accepted
// record count is what max_messages bounds.
func (c *Collector) Collect(ctx context.Context) (record.Batch, error) {
	conn, err := nats.Connect(c.config.URL, nats.Name("bridginghub/"+c.segment))
	if err != nil {
		return nil, errors.WrapInput(err, className, "Collect", "connect to "+c.config.URL)
	}
	defer conn.Close()

	sub, err := conn.SubscribeSync(c.config.Subject)
	if err != nil {
		return nil, errors.WrapInput(err, className, "Collect", "subscribe to "+c.config.Subject)
	}
	defer sub.Unsubscribe()

	names := c.settings.Names
	batch := record.Batch{}
	deadline := time.Now().Add(c.config.readTimeout())

	for len(batch) < c.config.MaxMessages {
		if err := ctx.Err(); err != nil {
			return nil, errors.WrapInput(err, className, "Collect", "drain subject")
		}
		wait := time.Until(deadline)
		if wait <= 0 {
			break
		}

		msg, err := sub.NextMsg(wait)
		if err == nats.ErrTimeout {
			break
		}
		if err != nil {
			return nil, errors.WrapInput(err, className, "Collect", "receive message")
		}

		id := lastToken(msg.Subject)
		if !c.settings.Registered(id) {
			c.logger.Debug("skipping message for unregistered record-id", "subject", msg.Subject, "id", id)
			continue
		}

		rec := record.Record{}
		names.Set(rec, record.FieldID, id)
		names.Set(rec, record.FieldTimestamp, timestamp.String(timestamp.Now()))
		names.Set(rec, record.FieldValue, string(msg.Data))
		names.Set(rec, record.FieldStatus, record.StatusIn)
		batch[id] = rec
	}

	c.logger.Debug("drained subject", "subject", c.config.Subject, "records", len(batch))
	return batch, nil
}

// lastToken returns the final dot-separated token of a subject.
func lastToken(subject string) string {
	idx := strings.LastIndex(subject, ".")
	if idx < 0 {
		return subject
	}
	return subject[idx+1:]
}
