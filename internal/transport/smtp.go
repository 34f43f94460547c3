// Package transport provides the outbound SMTP transport used by the
// campaign dispatcher.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"golang.org/x/time/rate"

	"tern/internal/delivery"
	"tern/internal/utils/logger"
)

// Config holds the outbound SMTP configuration for one campaign run.
type Config struct {
	Host         string
	Port         int
	Username     string
	Password     string
	FromEmail    string
	SupportsTLS  bool
	RequiresAuth bool

	// MaxSendRate caps transport calls per second.
	MaxSendRate int
	// MaxConnections caps concurrent sessions against the provider.
	MaxConnections int
	// MaxMessages bounds messages per session before reconnecting.
	MaxMessages int

	ConnectionTimeout time.Duration
	GreetingTimeout   time.Duration
	SocketTimeout     time.Duration
}

// Validate reports fatal configuration errors. These surface before any
// dispatch begins; a campaign never enters sending with a bad transport.
func (c Config) Validate() error {
	if c.Host == "" {
		return errors.New("smtp: host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("smtp: invalid port %d", c.Port)
	}
	if c.FromEmail == "" {
		return errors.New("smtp: from address is required")
	}
	if c.RequiresAuth && (c.Username == "" || c.Password == "") {
		return errors.New("smtp: credentials required when auth is enabled")
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.MaxSendRate <= 0 {
		c.MaxSendRate = 10
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = 1
	}
	if c.MaxMessages <= 0 {
		c.MaxMessages = 100
	}
	if c.ConnectionTimeout <= 0 {
		c.ConnectionTimeout = 10 * time.Second
	}
	if c.GreetingTimeout <= 0 {
		c.GreetingTimeout = c.ConnectionTimeout
	}
	if c.SocketTimeout <= 0 {
		c.SocketTimeout = 30 * time.Second
	}
	return c
}

// SMTP sends campaign messages through a single SMTP provider. Sessions
// are reused across sends and recycled after MaxMessages messages; a
// rate limiter paces calls and a semaphore caps concurrent sessions.
type SMTP struct {
	config  Config
	limiter *rate.Limiter
	sem     chan struct{}
	log     *logger.Logger

	mu       sync.Mutex
	client   *smtp.Client
	conn     net.Conn
	msgCount int
}

// NewSMTP validates the configuration and builds the transport.
func NewSMTP(config Config) (*SMTP, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	return &SMTP{
		config:  config,
		limiter: rate.NewLimiter(rate.Limit(config.MaxSendRate), config.MaxSendRate),
		sem:     make(chan struct{}, config.MaxConnections),
		log:     logger.New("SMTP"),
	}, nil
}

// Send delivers one message to all recipients in a single SMTP
// transaction. Provider-rejected recipients are reported in the result;
// connection-level failures are returned as retryable transport errors.
func (t *SMTP) Send(ctx context.Context, msg delivery.Message, recipients []string) (*delivery.SendResult, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, &delivery.TransportError{Op: "rate", Err: err}
	}

	select {
	case t.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, &delivery.TransportError{Op: "acquire", Err: ctx.Err()}
	}
	defer func() { <-t.sem }()

	t.mu.Lock()
	defer t.mu.Unlock()

	client, err := t.session()
	if err != nil {
		return nil, &delivery.TransportError{Op: "connect", Err: err}
	}
	t.extendDeadline()

	if err := client.Mail(t.config.FromEmail, nil); err != nil {
		t.closeSession()
		return nil, &delivery.TransportError{Op: "mail", Err: err}
	}

	result := &delivery.SendResult{}
	for _, rcpt := range recipients {
		err := client.Rcpt(rcpt, nil)
		if err == nil {
			result.Accepted = append(result.Accepted, rcpt)
			continue
		}
		var smtpErr *smtp.SMTPError
		if errors.As(err, &smtpErr) {
			// Provider rejected this recipient only; the chunk
			// continues without it.
			result.Rejected = append(result.Rejected, delivery.Rejection{
				Address: rcpt,
				Reason:  smtpErr.Error(),
			})
			continue
		}
		t.closeSession()
		return nil, &delivery.TransportError{Op: "rcpt", Err: err}
	}

	if len(result.Accepted) == 0 {
		// Nothing to deliver; abort the transaction and report the
		// rejections.
		if err := client.Reset(); err != nil {
			t.closeSession()
		}
		return result, nil
	}

	w, err := client.Data()
	if err != nil {
		t.closeSession()
		return nil, &delivery.TransportError{Op: "data", Err: err}
	}
	if _, err := w.Write(buildMessage(t.config.FromEmail, msg, result.Accepted)); err != nil {
		t.closeSession()
		return nil, &delivery.TransportError{Op: "write", Err: err}
	}
	if err := w.Close(); err != nil {
		t.closeSession()
		return nil, &delivery.TransportError{Op: "data", Err: err}
	}

	t.msgCount++
	if t.msgCount >= t.config.MaxMessages {
		t.log.Debug("session reached %d messages, reconnecting", t.msgCount)
		t.closeSession()
	}

	return result, nil
}

// Close shuts the cached session down.
func (t *SMTP) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Quit()
	t.client = nil
	t.conn = nil
	return err
}

// session returns the cached SMTP session or dials a new one.
func (t *SMTP) session() (*smtp.Client, error) {
	if t.client != nil {
		return t.client, nil
	}

	addr := fmt.Sprintf("%s:%d", t.config.Host, t.config.Port)
	dialer := net.Dialer{Timeout: t.config.ConnectionTimeout}
	conn, err := dialer.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	tlsConfig := &tls.Config{ServerName: t.config.Host, MinVersion: tls.VersionTLS12}
	if t.config.SupportsTLS && t.config.Port == 465 {
		conn = tls.Client(conn, tlsConfig)
	}

	// The greeting and handshake get their own, tighter deadline.
	conn.SetDeadline(time.Now().Add(t.config.GreetingTimeout))

	var client *smtp.Client
	if t.config.SupportsTLS && t.config.Port != 465 {
		client, err = smtp.NewClientStartTLS(conn, tlsConfig)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("starttls: %w", err)
		}
	} else {
		client = smtp.NewClient(conn)
	}
	if err := client.Hello(localName()); err != nil {
		client.Close()
		return nil, fmt.Errorf("hello: %w", err)
	}
	if t.config.RequiresAuth {
		auth := sasl.NewPlainClient("", t.config.Username, t.config.Password)
		if err := client.Auth(auth); err != nil {
			client.Close()
			return nil, fmt.Errorf("auth: %w", err)
		}
	}

	t.client = client
	t.conn = conn
	t.msgCount = 0
	return client, nil
}

func (t *SMTP) closeSession() {
	if t.client != nil {
		t.client.Close()
	}
	t.client = nil
	t.conn = nil
}

func (t *SMTP) extendDeadline() {
	if t.conn != nil {
		t.conn.SetDeadline(time.Now().Add(t.config.SocketTimeout))
	}
}

// buildMessage composes the RFC 5322 payload for one chunk. Recipients
// share a single message addressed via To headers.
func buildMessage(from string, msg delivery.Message, recipients []string) []byte {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + strings.Join(recipients, ", ") + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	if msg.CampaignID != "" {
		b.WriteString("X-Campaign-ID: " + msg.CampaignID + "\r\n")
	}
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return []byte(b.String())
}

func localName() string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return "localhost"
}
