package httppost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/ategus/bridginghub/config"
	"github.com/ategus/bridginghub/errors"
	"github.com/ategus/bridginghub/pkg/retry"
	"github.com/ategus/bridginghub/pkg/tlsutil"
	"github.com/ategus/bridginghub/record"
	"github.com/ategus/bridginghub/stage"
)

const (
	className = "PostRequestSender"
	location  = "github.com/ategus/bridginghub/output/httppost"

	contentTypeJSON = "application/json"
	backoffBase     = 100 * time.Millisecond
	backoffCap      = 5 * time.Second
)

// Config holds the endpoint and delivery settings.
type Config struct {
	// HostURL is the endpoint every record is posted to.
	HostURL string `json:"host_url"`

	// ExpectedRetval is the response status that counts as delivered.
	ExpectedRetval int `json:"expected_retval"`

	// VerifyCertificate disables TLS verification when set to false.
	VerifyCertificate bool `json:"verify_certificate"`

	// CAFile adds one PEM-encoded CA to the trusted pool.
	CAFile string `json:"ca_file"`

	// BasicUsername and BasicPassword enable HTTP basic auth together.
	BasicUsername string `json:"basic_username"`
	BasicPassword string `json:"basic_password"`

	// SelectSendAs renames record fields in the posted JSON object.
	// Fields without a mapping keep their name.
	SelectSendAs map[string]string `json:"select_send_as"`

	// Headers are set on every request in addition to Content-Type.
	Headers map[string]string `json:"headers"`

	// Timeout bounds one request in seconds.
	Timeout int `json:"timeout"`

	// RetryCount is the number of retries after a transient failure.
	RetryCount int `json:"retry_count"`

	// RateLimit caps outgoing requests per second. Zero means unlimited.
	RateLimit float64 `json:"rate_limit"`
}

// DefaultConfig returns the delivery settings used when a key is absent.
func DefaultConfig() Config {
	return Config{
		ExpectedRetval:    http.StatusOK,
		VerifyCertificate: true,
		Timeout:           30,
		RetryCount:        3,
	}
}

func parseConfig(detail map[string]any) Config {
	cfg := DefaultConfig()
	cfg.HostURL = config.GetString(detail, "host_url", "")
	cfg.ExpectedRetval = config.GetInt(detail, "expected_retval", cfg.ExpectedRetval)
	cfg.VerifyCertificate = config.GetBool(detail, "verify_certificate", cfg.VerifyCertificate)
	cfg.CAFile = config.GetString(detail, "ca_file", "")
	cfg.BasicUsername = config.GetString(detail, "basic_username", "")
	cfg.BasicPassword = config.GetString(detail, "basic_password", "")
	cfg.SelectSendAs = config.GetStringMap(detail, "select_send_as")
	cfg.Headers = config.GetStringMap(detail, "headers")
	cfg.Timeout = config.GetInt(detail, "timeout", cfg.Timeout)
	cfg.RetryCount = config.GetInt(detail, "retry_count", cfg.RetryCount)
	cfg.RateLimit = config.GetFloat64(detail, "rate_limit", 0)
	return cfg
}

// Validate checks the endpoint and the delivery bounds.
func (c Config) Validate() error {
	if c.HostURL == "" {
		return fmt.Errorf("%w: host_url", errors.ErrMissingConfig)
	}
	u, err := url.Parse(c.HostURL)
	if err != nil {
		return fmt.Errorf("%w: host_url %q: %v", errors.ErrInvalidConfig, c.HostURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: host_url %q must use http or https", errors.ErrInvalidConfig, c.HostURL)
	}
	if c.ExpectedRetval < 100 || c.ExpectedRetval > 599 {
		return fmt.Errorf("%w: expected_retval must be a status code, got %d",
			errors.ErrInvalidConfig, c.ExpectedRetval)
	}
	if c.Timeout < 0 || c.Timeout > 300 {
		return fmt.Errorf("%w: timeout must be between 0 and 300 seconds, got %d",
			errors.ErrInvalidConfig, c.Timeout)
	}
	if c.RetryCount < 0 || c.RetryCount > 10 {
		return fmt.Errorf("%w: retry_count must be between 0 and 10, got %d",
			errors.ErrInvalidConfig, c.RetryCount)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("%w: rate_limit cannot be negative, got %v",
			errors.ErrInvalidConfig, c.RateLimit)
	}
	if (c.BasicUsername == "") != (c.BasicPassword == "") {
		return fmt.Errorf("%w: basic_username and basic_password go together", errors.ErrInvalidConfig)
	}
	return nil
}

func (c Config) timeout() time.Duration {
	if c.Timeout == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// Sender posts records one by one in sorted id order. Delivery splits three
// ways: the expected status stamps out, any other definitive response
// stamps failed, and a transport failure or 5xx after retries leaves the
// record out of the result so it stays staged.
type Sender struct {
	segment string
	logger  *slog.Logger

	settings   stage.Settings
	config     Config
	client     *http.Client
	limiter    *rate.Limiter
	retryCfg   retry.Config
	configured bool
}

var _ stage.Output = (*Sender)(nil)

// New creates an unconfigured HTTP POST sender for the given segment.
func New(segment string, deps stage.Dependencies) (stage.Stage, error) {
	return &Sender{
		segment: segment,
		logger:  deps.GetLoggerWithSegment(segment),
	}, nil
}

// Register adds the PostRequestSender implementation to the registry.
func Register(registry *stage.Registry) error {
	return registry.RegisterFactory(stage.Registration{
		Class:       className,
		Location:    location,
		Type:        config.TypeOutput,
		Description: "Posts records as JSON objects to an HTTP endpoint",
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
		Description: "Posts records as JSON objects to an HTTP endpoint",
		Version:     "1.0.0",
	}
}

// Configure resolves the segment settings and builds the HTTP client.
func (s *Sender) Configure(cfg *config.Config) error {
	if s.configured {
		return errors.WrapConfig(errors.ErrInvalidConfig, className, "Configure", "configure stage twice")
	}
	settings, err := stage.ResolveSettings(cfg, s.segment, config.TypeOutput)
	if err != nil {
		return err
	}

	sendCfg := parseConfig(settings.Segment.Detail)
	if err := sendCfg.Validate(); err != nil {
		return errors.WrapConfig(err, className, "Configure", "validate endpoint settings")
	}

	client, err := tlsutil.NewHTTPClient(sendCfg.timeout(), tlsutil.ClientConfig{
		CAFile:             sendCfg.CAFile,
		InsecureSkipVerify: !sendCfg.VerifyCertificate,
	})
	if err != nil {
		return errors.WrapConfig(err, className, "Configure", "build HTTP client")
	}
	if !sendCfg.VerifyCertificate {
		s.logger.Warn("certificate verification disabled", "host_url", sendCfg.HostURL)
	}

	if sendCfg.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(sendCfg.RateLimit), 1)
	}

	s.settings = settings
	s.config = sendCfg
	s.client = client
	s.retryCfg = retry.Config{
		MaxAttempts:  sendCfg.RetryCount + 1,
		InitialDelay: backoffBase,
		MaxDelay:     backoffCap,
		Multiplier:   2.0,
		AddJitter:    true,
	}
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

// Send posts every record and partitions the outcomes. Only context
// cancellation aborts the whole pass; per-record failures either stamp the
// record failed or leave it staged for the next pass.
func (s *Sender) Send(ctx context.Context, batch record.Batch) (record.Batch, error) {
	names := s.settings.Names
	out := record.Batch{}

	for _, id := range batch.IDs() {
		rec := batch[id]

		payload, err := json.Marshal(s.selectSendAs(rec))
		if err != nil {
			return nil, errors.WrapOutput(err, className, "Send", "encode record "+id)
		}

		err = s.deliver(ctx, payload)
		switch {
		case err == nil:
			s.logger.Info("record delivered", "id", id)
			names.Set(rec, record.FieldStatus, record.StatusOut)
			out[id] = rec
		case ctx.Err() != nil:
			return nil, errors.WrapOutput(err, className, "Send", "post record "+id)
		case retry.IsNonRetryable(err):
			s.logger.Warn("record rejected", "id", id, "error", err)
			names.Set(rec, record.FieldStatus, record.StatusFailed)
			out[id] = rec
		default:
			// No definitive outcome: the record stays staged.
			s.logger.Warn("record not delivered", "id", id, "error", err)
		}
	}

	return out, nil
}

// deliver posts one payload with bounded backoff. A 5xx response counts as
// transient like a transport failure; every other unexpected status is a
// definitive rejection.
func (s *Sender) deliver(ctx context.Context, payload []byte) error {
	return retry.Do(ctx, s.retryCfg, func() error {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.HostURL, bytes.NewReader(payload))
		if err != nil {
			return retry.NonRetryable(err)
		}
		req.Header.Set("Content-Type", contentTypeJSON)
		for key, value := range s.config.Headers {
			req.Header.Set(key, value)
		}
		if s.config.BasicUsername != "" {
			req.SetBasicAuth(s.config.BasicUsername, s.config.BasicPassword)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)

		switch {
		case resp.StatusCode == s.config.ExpectedRetval:
			return nil
		case resp.StatusCode >= 500:
			return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
		default:
			return retry.NonRetryable(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
		}
	})
}

// selectSendAs builds the posted object, renaming the mapped fields and
// passing the rest through unchanged.
func (s *Sender) selectSendAs(rec record.Record) record.Record {
	if len(s.config.SelectSendAs) == 0 {
		return rec
	}
	sent := record.Record{}
	for field, value := range rec {
		if sendAs, ok := s.config.SelectSendAs[field]; ok {
			sent[sendAs] = value
			continue
		}
		sent[field] = value
	}
	return sent
}
