package header

import (
	"strconv"
	"strings"
	"time"
)

// IsTokenChar reports whether c may appear in a token: anything but a
// control character or an HTTP separator. Bytes of multi-byte UTF-8
// sequences are token characters.
func IsTokenChar(c byte) bool {
	if c < 32 || c == 127 {
		return false
	}
	return strings.IndexByte("()<>@,;:\\\"/[]?={} \t", c) < 0
}

// ScanToken splits s into its leading token and the remainder. The token is
// empty when s does not start with a token character.
func ScanToken(s string) (token, rest string) {
	i := 0
	for i < len(s) && IsTokenChar(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// ParseToken parses a value that must consist of exactly one token,
// surrounded by optional whitespace.
func ParseToken(s string) (string, error) {
	sc := newScanner("token", s)
	sc.skipSpace()
	tok, _ := ScanToken(s[sc.pos:])
	if tok == "" {
		return "", sc.errorf("expected a token")
	}
	sc.pos += len(tok)
	if err := sc.end(); err != nil {
		return "", err
	}
	return tok, nil
}

// Timeout is a single TimeType of a Timeout header.
type Timeout struct {
	Infinite bool
	Duration time.Duration
}

func (t Timeout) String() string {
	if t.Infinite {
		return "Infinite"
	}
	return "Second-" + strconv.FormatInt(int64(t.Duration/time.Second), 10)
}

// Cap returns the duration of t limited to max. Infinite timeouts yield max.
func (t Timeout) Cap(max time.Duration) time.Duration {
	if t.Infinite || (max > 0 && t.Duration > max) {
		return max
	}
	return t.Duration
}

// ParseTimeout parses a Timeout header (RFC 4918 section 10.7), a comma
// separated list of "Infinite" or "Second-n" values in order of preference.
// The first value understood wins; unknown values are skipped.
func ParseTimeout(s string) (Timeout, error) {
	sc := newScanner(NameTimeout, s)
	for {
		sc.skipSpace()
		if sc.eof() {
			return Timeout{}, sc.errorf("no supported timeout value")
		}
		start := sc.pos
		tok, _ := ScanToken(s[sc.pos:])
		if tok == "" {
			return Timeout{}, sc.errorf("expected a timeout value")
		}
		sc.pos += len(tok)

		if t, ok := timeoutValue(tok); ok {
			return t, nil
		}
		if strings.HasPrefix(strings.ToLower(tok), "second-") {
			return Timeout{}, sc.errorAt(start, "invalid timeout value %q", tok)
		}

		sc.skipSpace()
		if sc.eof() {
			continue
		}
		if sc.peek() != ',' {
			return Timeout{}, sc.errorf("expected ',' (timeout list)")
		}
		sc.pos++
	}
}

func timeoutValue(tok string) (Timeout, bool) {
	if strings.EqualFold(tok, "Infinite") {
		return Timeout{Infinite: true}, true
	}
	if len(tok) <= len("Second-") || !strings.EqualFold(tok[:len("Second-")], "Second-") {
		return Timeout{}, false
	}
	// DAVTimeOutVal is at most 2^32-1.
	n, err := strconv.ParseUint(tok[len("Second-"):], 10, 32)
	if err != nil {
		return Timeout{}, false
	}
	return Timeout{Duration: time.Duration(n) * time.Second}, true
}

// Depth is the value of a Depth header.
type Depth int

const (
	DepthZero     Depth = 0
	DepthOne      Depth = 1
	DepthInfinity Depth = -1
)

func (d Depth) String() string {
	switch d {
	case DepthZero:
		return "0"
	case DepthOne:
		return "1"
	case DepthInfinity:
		return "infinity"
	default:
		return "Depth(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDepth parses a Depth header: "0", "1" or "infinity".
func ParseDepth(s string) (Depth, error) {
	sc := newScanner(NameDepth, s)
	sc.skipSpace()
	tok, _ := ScanToken(s[sc.pos:])
	var d Depth
	switch strings.ToLower(tok) {
	case "0":
		d = DepthZero
	case "1":
		d = DepthOne
	case "infinity":
		d = DepthInfinity
	default:
		return 0, sc.errorf("invalid depth %q", tok)
	}
	sc.pos += len(tok)
	if err := sc.end(); err != nil {
		return 0, err
	}
	return d, nil
}
