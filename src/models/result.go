package models

// ParseStatus tags the outcome of running one format parser against one
// message, so callers branch exhaustively instead of probing for nils.
type ParseStatus int

const (
	// StatusParsed means a Candidate was extracted. Its fields may still
	// fail validation (e.g. missing amount); that is the caller's call.
	StatusParsed ParseStatus = iota
	// StatusNoMatch means the message is not in this parser's format and
	// the caller should treat it as unhandled by this parser.
	StatusNoMatch
	// StatusInvalid means the message matched the format but cannot yield
	// a candidate; Reason carries the fixed error string.
	StatusInvalid
)

// Event is one structured diagnostic emitted while parsing. Parsers never
// write to the process-wide logger; they return their trail and the ingest
// layer decides what to log.
type Event struct {
	Message string
	Fields  map[string]string
}

// ParseResult is the tagged result of one parse attempt.
type ParseResult struct {
	Status    ParseStatus
	Candidate *Candidate
	Reason    string
	Trail     []Event
}

func Parsed(c *Candidate, trail ...Event) ParseResult {
	return ParseResult{Status: StatusParsed, Candidate: c, Trail: trail}
}

func NoMatch(trail ...Event) ParseResult {
	return ParseResult{Status: StatusNoMatch, Trail: trail}
}

// Invalid reports a validation failure. The candidate, when available, is
// still attached so callers can inspect what was extracted (e.g. for
// sender gating).
func Invalid(reason string, c *Candidate, trail ...Event) ParseResult {
	return ParseResult{Status: StatusInvalid, Candidate: c, Reason: reason, Trail: trail}
}
