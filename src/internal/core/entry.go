package core

// Entry is a single formatted access-log line held in the spool until the
// next flush. Key is the time the line was accepted into the buffer, in
// microseconds since the Unix epoch, made strictly increasing by the
// buffer's key generator. Entries are immutable after insertion.
type Entry struct {
	Key  int64
	Line string
}
