package access

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Timings holds the seven absolute timestamps captured for one completed
// request. Accepted is when the connection was accepted, which on a
// keep-alive connection can be far earlier than RequestStart.
type Timings struct {
	Accepted     time.Time
	RequestStart time.Time
	HeadersEnd   time.Time
	BodyEnd      time.Time
	UserStart    time.Time
	UserEnd      time.Time
	RequestEnd   time.Time
}

// Meta holds the request metadata carried alongside the timing breakdown.
type Meta struct {
	Peer          string
	StatusCode    int
	ResponseBytes int
	Method        string
	RawPath       string
}

// Event is the per-request timing breakdown. The six duration fields are
// signed wall-clock microseconds; each is computed independently as a
// timestamp difference, so a clock anomaly yields a wrong value rather
// than a failure, and Total equals the sum of the phases only when the
// input timestamps are well ordered.
type Event struct {
	RequestLine int64
	Headers     int64
	Body        int64
	User        int64
	Response    int64
	Total       int64

	Peer          string
	StatusCode    int
	ResponseBytes int
	Method        string
	RawPath       string
}

// Compute turns raw request timestamps and metadata into an Event. A zero
// timestamp is a contract violation by the caller and rejects the event.
func Compute(t Timings, m Meta) (Event, error) {
	for _, stamp := range []struct {
		name string
		ts   time.Time
	}{
		{"accepted", t.Accepted},
		{"request_start", t.RequestStart},
		{"headers_end", t.HeadersEnd},
		{"body_end", t.BodyEnd},
		{"user_start", t.UserStart},
		{"user_end", t.UserEnd},
		{"request_end", t.RequestEnd},
	} {
		if stamp.ts.IsZero() {
			return Event{}, fmt.Errorf("missing timestamp: %s", stamp.name)
		}
	}

	return Event{
		RequestLine:   micros(t.Accepted, t.RequestStart),
		Headers:       micros(t.RequestStart, t.HeadersEnd),
		Body:          micros(t.HeadersEnd, t.BodyEnd),
		User:          micros(t.UserStart, t.UserEnd),
		Response:      micros(t.UserEnd, t.RequestEnd),
		Total:         micros(t.RequestStart, t.RequestEnd),
		Peer:          m.Peer,
		StatusCode:    m.StatusCode,
		ResponseBytes: m.ResponseBytes,
		Method:        m.Method,
		RawPath:       m.RawPath,
	}, nil
}

// Line renders the event as a single space-separated access-log line
// with no trailing newline:
//
//	<peer> <requestLine>/<headers>/<body>/<user>/<response>/<total> <status> <bytes> "<method> <path>"
func (e Event) Line() string {
	var b strings.Builder
	b.Grow(len(e.Peer) + len(e.Method) + len(e.RawPath) + 64)

	b.WriteString(e.Peer)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatInt(e.RequestLine, 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(e.Headers, 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(e.Body, 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(e.User, 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(e.Response, 10))
	b.WriteByte('/')
	b.WriteString(strconv.FormatInt(e.Total, 10))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(e.StatusCode))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(e.ResponseBytes))
	b.WriteString(" \"")
	b.WriteString(e.Method)
	b.WriteByte(' ')
	b.WriteString(e.RawPath)
	b.WriteByte('"')

	return b.String()
}

// ErrorLine renders the single-line form used for exceptional request
// outcomes, which bypass the buffered path.
func ErrorLine(peer, method, path string, err error) string {
	return fmt.Sprintf("%s error %q %v", peer, method+" "+path, err)
}

func micros(from, to time.Time) int64 {
	return to.UnixMicro() - from.UnixMicro()
}
