// Package codec implements the wire format of the per-block consensus
// payload: "PoW:difficulty:nonce:timestamp".
package codec

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Tag is the 3-byte consensus discriminator. Only PoWTag is recognized.
type Tag [3]byte

var PoWTag = Tag{'P', 'o', 'W'}

const glue = ':'

// Consensus is the parsed view of a block's opaque payload bytes.
type Consensus struct {
	Tag        Tag
	Difficulty uint32
	Nonce      uint64
	Timestamp  float64
}

// IsPoW reports whether the tag identifies this as a recognized PoW payload.
func (c Consensus) IsPoW() bool {
	return c.Tag == PoWTag
}

// Encode renders (difficulty, nonce, timestamp) as "PoW:difficulty:nonce:timestamp".
// The timestamp uses the shortest round-trippable decimal representation.
func Encode(difficulty uint32, nonce uint64, timestamp float64) []byte {
	return []byte(fmt.Sprintf("PoW:%d:%d:%s",
		difficulty, nonce, strconv.FormatFloat(timestamp, 'g', -1, 64)))
}

// InvalidTagError is returned when the payload's 3-byte prefix is not "PoW",
// or fewer than 3 bytes are available.
type InvalidTagError struct {
	Got []byte
}

func (e *InvalidTagError) Error() string {
	return fmt.Sprintf("consensus has invalid tag: %q", e.Got)
}

// InvalidEncodingError is returned when a numeric field contains non-UTF-8 bytes.
type InvalidEncodingError struct {
	Field string
}

func (e *InvalidEncodingError) Error() string {
	return fmt.Sprintf("consensus field %s has invalid utf-8 encoding", e.Field)
}

// InvalidFieldError is returned when a numeric field fails to parse.
type InvalidFieldError struct {
	Field string
	Value string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("failed to parse consensus %s: %q", e.Field, e.Value)
}

// Decode parses the consensus payload wire format. Field order in the
// encoding is difficulty, nonce, timestamp.
func Decode(payload []byte) (Consensus, error) {
	if len(payload) < 3 {
		return Consensus{}, &InvalidTagError{Got: payload}
	}

	var tag Tag
	copy(tag[:], payload[:3])
	if tag != PoWTag {
		return Consensus{}, &InvalidTagError{Got: payload[:3]}
	}

	rest := payload[3:]
	// skip the glue byte immediately after the tag, if present.
	if len(rest) > 0 && rest[0] == glue {
		rest = rest[1:]
	}

	difficultyBytes, rest := readSequence(rest)
	nonceBytes, rest := readSequence(rest)
	timestampBytes, _ := readSequence(rest)

	difficulty, err := parseUint32Field("difficulty", difficultyBytes)
	if err != nil {
		return Consensus{}, err
	}

	nonce, err := parseUint64Field("nonce", nonceBytes)
	if err != nil {
		return Consensus{}, err
	}

	timestamp, err := parseFloatField("timestamp", timestampBytes)
	if err != nil {
		return Consensus{}, err
	}

	return Consensus{
		Tag:        tag,
		Difficulty: difficulty,
		Nonce:      nonce,
		Timestamp:  timestamp,
	}, nil
}

// readSequence reads bytes up to (but not including) the next glue byte, or
// to the end of input. It returns the sequence and the remainder, with the
// terminating glue byte (if any) consumed.
func readSequence(b []byte) (seq []byte, remainder []byte) {
	for i, c := range b {
		if c == glue {
			return b[:i], b[i+1:]
		}
	}
	return b, nil
}

func parseUint32Field(name string, raw []byte) (uint32, error) {
	if !utf8.Valid(raw) {
		return 0, &InvalidEncodingError{Field: name}
	}

	value, err := strconv.ParseUint(string(raw), 10, 32)
	if err != nil {
		return 0, &InvalidFieldError{Field: name, Value: string(raw)}
	}

	return uint32(value), nil
}

func parseUint64Field(name string, raw []byte) (uint64, error) {
	if !utf8.Valid(raw) {
		return 0, &InvalidEncodingError{Field: name}
	}

	value, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, &InvalidFieldError{Field: name, Value: string(raw)}
	}

	return value, nil
}

func parseFloatField(name string, raw []byte) (float64, error) {
	if !utf8.Valid(raw) {
		return 0, &InvalidEncodingError{Field: name}
	}

	value, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return 0, &InvalidFieldError{Field: name, Value: string(raw)}
	}

	return value, nil
}

// IsPoWConsensus reports whether payload decodes successfully to a PoW
// consensus payload. Any decode error, or a decoded non-PoW tag, yields false.
func IsPoWConsensus(payload []byte) bool {
	consensus, err := Decode(payload)
	if err != nil {
		return false
	}
	return consensus.IsPoW()
}
