package parsers

import (
	"mime"
	"regexp"
	"strings"

	"github.com/username/cachin/backend/src/mailmsg"
)

// ForwardingSender originates the provider's auto-forwarding confirmation
// emails.
const ForwardingSender = "forwarding-noreply@google.com"

var (
	confirmationLinkPattern = regexp.MustCompile(`https://mail-settings\.google\.com/mail/vf-[^\s<>]+`)
	forwardRequestPattern   = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})\s+ha\s+solicitado\s+reenviar`)
)

// IsForwardingConfirmation reports whether sender and subject identify a
// mailbox auto-forwarding confirmation email. The subject may still carry
// RFC 2047 encoding when it comes straight from the stored row, so it is
// decoded first; both the Spanish and English keyword pairs are accepted.
func IsForwardingConfirmation(fromAddress, subject string) bool {
	dec := new(mime.WordDecoder)
	if decoded, err := dec.DecodeHeader(subject); err == nil {
		subject = decoded
	}
	from := strings.ToLower(fromAddress)
	subj := strings.ToLower(subject)

	return strings.Contains(from, ForwardingSender) &&
		(strings.Contains(subj, "confirmación") || strings.Contains(subj, "confirmation")) &&
		(strings.Contains(subj, "reenvío") || strings.Contains(subj, "forwarding"))
}

// ForwardingResult is the extraction result for one confirmation email.
// A missing link is not an error; the message is processed regardless.
type ForwardingResult struct {
	ConfirmationLink string
	ForwardingEmail  string
}

// ParseForwardingEmail extracts the provider confirmation URL (and the
// address that requested forwarding) from the raw message. The body may be
// quoted-printable encoded with soft line wraps splitting the URL.
func ParseForwardingEmail(raw []byte) ForwardingResult {
	decoded := mailmsg.DecodeQuotedPrintable(raw)

	var res ForwardingResult
	if link := confirmationLinkPattern.FindString(decoded); link != "" {
		res.ConfirmationLink = strings.TrimRight(link, ".,;)")
	}
	if m := forwardRequestPattern.FindStringSubmatch(decoded); m != nil {
		res.ForwardingEmail = m[1]
	}
	return res
}
