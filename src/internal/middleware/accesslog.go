package middleware

import (
	"fmt"
	"time"

	"logspool/src/internal/access"
	"logspool/src/internal/spool"

	"github.com/valyala/fasthttp"
)

// AccessLog wraps a fasthttp handler and records one timing event per
// completed request into the spool. fasthttp has already read the request
// line, headers and body when the handler runs, so the parse boundary is
// the handler entry time; ConnTime is the accept time, which on
// keep-alive connections predates the current request.
//
// A panicking handler produces an error event on the unbuffered path
// instead of an access line.
func AccessLog(s *spool.Spool, next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		start := ctx.Time()
		if start.IsZero() {
			start = time.Now()
		}
		accepted := ctx.ConnTime()
		if accepted.IsZero() {
			accepted = start
		}
		parsed := time.Now()

		peer := ctx.RemoteIP().String()
		method := string(ctx.Method())
		rawPath := string(ctx.RequestURI())

		defer func() {
			if r := recover(); r != nil {
				ctx.Error("Internal Server Error", fasthttp.StatusInternalServerError)
				s.RecordError(peer, method, rawPath, fmt.Errorf("panic: %v", r))
			}
		}()

		userStart := time.Now()
		next(ctx)
		userEnd := time.Now()

		s.Record(access.Timings{
			Accepted:     accepted,
			RequestStart: start,
			HeadersEnd:   parsed,
			BodyEnd:      parsed,
			UserStart:    userStart,
			UserEnd:      userEnd,
			RequestEnd:   time.Now(),
		}, access.Meta{
			Peer:          peer,
			StatusCode:    ctx.Response.StatusCode(),
			ResponseBytes: len(ctx.Response.Body()),
			Method:        method,
			RawPath:       rawPath,
		})
	}
}
