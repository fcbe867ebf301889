package trinary

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ErrorPolicy selects how DecodeBytes and DecodeString treat undecodable units.
type ErrorPolicy int

const (
	// Strict fails on the first undecodable unit.
	Strict ErrorPolicy = iota
	// Replace substitutes a placeholder and continues.
	Replace
	// Ignore drops the unit and continues.
	Ignore
)

func (p ErrorPolicy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Replace:
		return "replace"
	case Ignore:
		return "ignore"
	default:
		return fmt.Sprintf("ErrorPolicy(%d)", int(p))
	}
}

// ParseErrorPolicy parses "strict", "replace" or "ignore".
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch strings.ToLower(s) {
	case "strict", "":
		return Strict, nil
	case "replace":
		return Replace, nil
	case "ignore":
		return Ignore, nil
	default:
		return Strict, fmt.Errorf("unknown error policy %q", s)
	}
}

// DecodeError is returned by strict decoding.
type DecodeError struct {
	Offset int    // Tryte offset of the offending unit
	Reason string // What was wrong with it
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("trytes decode error at offset %d: %s", e.Offset, e.Reason)
}

// replacementByte stands in for an undecodable tryte pair under Replace.
const replacementByte = '?'

// EncodeBytes encodes each byte as two trytes, low digit first.
//
// 27*27 = 729 pairs cover all 256 byte values, so the encoding is lossless.
func EncodeBytes(b []byte) Trytes {
	var sb strings.Builder
	sb.Grow(2 * len(b))
	for _, c := range b {
		sb.WriteByte(TryteAlphabet[int(c)%27])
		sb.WriteByte(TryteAlphabet[int(c)/27])
	}
	return Trytes(sb.String())
}

// DecodeBytes reverses EncodeBytes.
//
// A pair whose value exceeds 255, or a trailing unpaired tryte, is handled
// according to policy. Characters outside the alphabet always fail.
func DecodeBytes(t Trytes, policy ErrorPolicy) ([]byte, error) {
	if err := ValidTrytes(string(t)); err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(t)/2)
	for i := 0; i < len(t); i += 2 {
		if i+1 >= len(t) {
			switch policy {
			case Strict:
				return nil, &DecodeError{Offset: i, Reason: "odd number of trytes"}
			case Replace:
				out = append(out, replacementByte)
			}
			break
		}

		v := tryteIndex(t[i]) + tryteIndex(t[i+1])*27
		if v > 255 {
			switch policy {
			case Strict:
				return nil, &DecodeError{
					Offset: i,
					Reason: fmt.Sprintf("pair %q decodes to %d, outside byte range", string(t[i:i+2]), v),
				}
			case Replace:
				out = append(out, replacementByte)
			}
			continue
		}
		out = append(out, byte(v))
	}
	return out, nil
}

// EncodeString encodes the UTF-8 bytes of s.
func EncodeString(s string) Trytes {
	return EncodeBytes([]byte(s))
}

// DecodeString decodes a padded message back to text.
//
// Trailing '9' padding is stripped first; if that leaves an odd length,
// one '9' is restored so the final byte can still decode. Invalid UTF-8 is
// handled according to policy (U+FFFD under Replace).
func DecodeString(t Trytes, policy ErrorPolicy) (string, error) {
	trimmed := Trytes(strings.TrimRight(string(t), "9"))
	if len(trimmed)%2 != 0 {
		trimmed += "9"
	}

	b, err := DecodeBytes(trimmed, policy)
	if err != nil {
		return "", err
	}
	if utf8.Valid(b) {
		return string(b), nil
	}

	var sb strings.Builder
	for i := 0; i < len(b); {
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			switch policy {
			case Strict:
				return "", &DecodeError{Offset: 2 * i, Reason: "invalid UTF-8 sequence"}
			case Replace:
				sb.WriteRune(utf8.RuneError)
			}
			i++
			continue
		}
		sb.Write(b[i : i+size])
		i += size
	}
	return sb.String(), nil
}
