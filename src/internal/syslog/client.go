package syslog

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lixenwraith/log"
)

// Severity is the syslog severity level of a message.
type Severity int

const (
	SeverityEmerg Severity = iota
	SeverityAlert
	SeverityCrit
	SeverityErr
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// facilities maps facility names to their syslog codes.
var facilities = map[string]int{
	"kern":     0,
	"user":     1,
	"mail":     2,
	"daemon":   3,
	"auth":     4,
	"syslog":   5,
	"lpr":      6,
	"news":     7,
	"uucp":     8,
	"cron":     9,
	"authpriv": 10,
	"ftp":      11,
	"local0":   16,
	"local1":   17,
	"local2":   18,
	"local3":   19,
	"local4":   20,
	"local5":   21,
	"local6":   22,
	"local7":   23,
}

// Config holds the delivery destination and identity for a sink.
type Config struct {
	Name         string // sink identifier
	Host         string // hostname stamped into each packet
	Ident        string // process/node identifier (syslog tag)
	Facility     string
	IP           string
	Port         int
	WriteTimeout time.Duration
}

// Client sends formatted lines to a remote collector as RFC 3164 packets
// over UDP. Delivery is best-effort: no acknowledgment, no retry.
type Client struct {
	config   Config
	facility int
	conn     net.Conn
	logger   *log.Logger

	// Statistics
	totalSent   atomic.Uint64
	totalFailed atomic.Uint64
	lastSent    atomic.Value // time.Time
}

// NewClient creates a UDP syslog client. Options not supplied fall back
// to defaults per key; supplied values win.
func NewClient(options map[string]any, logger *log.Logger) (*Client, error) {
	cfg := Config{
		Name:         "access",
		Ident:        "logspool",
		Facility:     "local0",
		IP:           "127.0.0.1",
		Port:         514,
		WriteTimeout: 5 * time.Second,
	}
	if hostname, err := os.Hostname(); err == nil {
		cfg.Host = hostname
	} else {
		cfg.Host = "localhost"
	}

	if name, ok := options["name"].(string); ok && name != "" {
		cfg.Name = name
	}
	if host, ok := options["host"].(string); ok && host != "" {
		cfg.Host = host
	}
	if ident, ok := options["ident"].(string); ok && ident != "" {
		cfg.Ident = ident
	}
	if facility, ok := options["facility"].(string); ok && facility != "" {
		cfg.Facility = facility
	}
	if ip, ok := options["ip"].(string); ok && ip != "" {
		cfg.IP = ip
	}
	if port, ok := toInt(options["port"]); ok && port > 0 {
		cfg.Port = port
	}
	if timeout, ok := toInt(options["write_timeout_seconds"]); ok && timeout > 0 {
		cfg.WriteTimeout = time.Duration(timeout) * time.Second
	}

	facility, ok := facilities[cfg.Facility]
	if !ok {
		return nil, fmt.Errorf("unknown syslog facility: %q", cfg.Facility)
	}

	addr := net.JoinHostPort(cfg.IP, strconv.Itoa(cfg.Port))
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to open UDP socket to %s: %w", addr, err)
	}

	c := &Client{
		config:   cfg,
		facility: facility,
		conn:     conn,
		logger:   logger,
	}
	c.lastSent.Store(time.Time{})

	logger.Info("msg", "Syslog client created",
		"component", "syslog_client",
		"sink", cfg.Name,
		"collector", addr,
		"facility", cfg.Facility)
	return c, nil
}

// SendBatch sends an ordered batch of lines at info severity, one packet
// per line. A zero-length batch is a no-op. Packet write failures are
// counted; remaining lines are still attempted and the last error is
// returned for diagnostics.
func (c *Client) SendBatch(lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	var lastErr error
	for _, line := range lines {
		if err := c.send(line, SeverityInfo); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// SendError sends one line at err severity, outside the batch cadence.
func (c *Client) SendError(line string) error {
	return c.send(line, SeverityErr)
}

func (c *Client) send(line string, severity Severity) error {
	pri := c.facility*8 + int(severity)
	packet := fmt.Sprintf("<%d>%s %s %s: %s",
		pri, time.Now().Format(time.Stamp), c.config.Host, c.config.Ident, line)

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout)); err != nil {
		c.totalFailed.Add(1)
		return fmt.Errorf("failed to set write deadline: %w", err)
	}
	if _, err := c.conn.Write([]byte(packet)); err != nil {
		c.totalFailed.Add(1)
		return fmt.Errorf("write failed: %w", err)
	}

	c.totalSent.Add(1)
	c.lastSent.Store(time.Now())
	return nil
}

// Close releases the socket. Sends after Close fail and are counted.
func (c *Client) Close() {
	_ = c.conn.Close()
	c.logger.Info("msg", "Syslog client closed",
		"component", "syslog_client",
		"sink", c.config.Name,
		"total_sent", c.totalSent.Load(),
		"total_failed", c.totalFailed.Load())
}

// Stats contains delivery counters.
type Stats struct {
	Name        string
	TotalSent   uint64
	TotalFailed uint64
	LastSent    time.Time
	Details     map[string]any
}

// GetStats returns client statistics.
func (c *Client) GetStats() Stats {
	lastSent, _ := c.lastSent.Load().(time.Time)
	return Stats{
		Name:        c.config.Name,
		TotalSent:   c.totalSent.Load(),
		TotalFailed: c.totalFailed.Load(),
		LastSent:    lastSent,
		Details: map[string]any{
			"collector": net.JoinHostPort(c.config.IP, strconv.Itoa(c.config.Port)),
			"facility":  c.config.Facility,
			"ident":     c.config.Ident,
		},
	}
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		return int(val), true
	default:
		return 0, false
	}
}
