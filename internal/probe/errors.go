package probe

import "fmt"

// Kind names the phase a probe failed in.
type Kind string

const (
	KindInvalidURL Kind = "invalid_url"
	KindDNS        Kind = "dns"
	KindConnect    Kind = "connect"
	KindTLS        Kind = "tls"
	KindRequest    Kind = "request"
)

// Error is a typed probe failure. It is terminal for that single check;
// the scheduler maps it to an Error status with this message.
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("probe %s: %s failed", e.URL, e.Kind)
	}
	return fmt.Sprintf("probe %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
