package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/idna"
)

var ErrInvalidURL = errors.New("invalid url")

// Origin identifies the authority a policy or an admission record applies to.
// Path, query, fragment and userinfo never take part in it.
type Origin struct {
	scheme string
	host   string
	port   string
}

// ExtractOrigin parses raw and reduces it to its origin.
//
// The normalization follows these rules:
//   - Scheme is lowercased; only http and https are accepted
//   - Host is converted to its ASCII (punycode) form and lowercased
//   - Default ports are omitted (:80 for http, :443 for https)
func ExtractOrigin(raw string) (Origin, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Origin{}, fmt.Errorf("%w: empty url", ErrInvalidURL)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return Origin{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	return OriginOf(parsed)
}

// OriginOf reduces an already parsed URL to its origin.
func OriginOf(u *url.URL) (Origin, error) {
	scheme := lowerASCII(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return Origin{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}

	hostname := u.Hostname()
	if hostname == "" {
		return Origin{}, fmt.Errorf("%w: missing host in %q", ErrInvalidURL, u.String())
	}

	host, err := asciiHost(hostname)
	if err != nil {
		return Origin{}, fmt.Errorf("%w: host %q: %v", ErrInvalidURL, hostname, err)
	}

	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	return Origin{scheme: scheme, host: host, port: port}, nil
}

// OriginKey returns the canonical origin string for raw, falling back to the
// trimmed, lowercased input when raw has no recognizable origin.
func OriginKey(raw string) string {
	origin, err := ExtractOrigin(raw)
	if err != nil {
		return lowerASCII(strings.TrimSpace(raw))
	}
	return origin.String()
}

func (o Origin) Scheme() string {
	return o.scheme
}

func (o Origin) Host() string {
	return o.host
}

func (o Origin) Port() string {
	return o.port
}

func (o Origin) IsZero() bool {
	return o == Origin{}
}

// String renders scheme://host[:port].
func (o Origin) String() string {
	if o.IsZero() {
		return ""
	}
	hostport := o.host
	if o.port != "" {
		hostport = net.JoinHostPort(o.host, o.port)
	} else if strings.Contains(o.host, ":") {
		hostport = "[" + o.host + "]"
	}
	return o.scheme + "://" + hostport
}

// RobotsURL is the location of the origin's robots.txt document.
func (o Origin) RobotsURL() string {
	return o.String() + "/robots.txt"
}

// RequestPath returns the part of u that robots rules are matched against:
// the escaped path ("/" when empty) followed by "?query" when a query is present.
func RequestPath(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

func asciiHost(hostname string) (string, error) {
	if ip := net.ParseIP(hostname); ip != nil {
		return ip.String(), nil
	}
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		// STD3 rules reject labels such as "my_host"; plain ASCII names are
		// still usable as keys.
		if isASCII(hostname) {
			return lowerASCII(hostname), nil
		}
		return "", err
	}
	return lowerASCII(ascii), nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// lowerASCII converts ASCII characters to lowercase, returning s unchanged
// when it has none.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := []byte(s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}
