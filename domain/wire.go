package domain

import (
	"strings"
	"time"

	relayerrors "chat-relay/errors"
)

// The wire format is one record per line, four pipe-delimited fields:
//
//	TYPE|SENDER|CONTENT|HH:MM:SS
//
// The upstream format had no escaping rule, so a delimiter inside the
// content corrupted parsing. The codec closes that hole: `|` and `\` in
// the sender and content fields are backslash-escaped on encode and
// unescaped on decode. Records that need no escaping are byte-identical
// to the original format.

const fieldCount = 4

var fieldEscaper = strings.NewReplacer(`\`, `\\`, `|`, `\|`)

// Encode renders a record as a single wire line, without the trailing
// newline.
func Encode(m Message) string {
	fields := []string{
		string(m.Type),
		fieldEscaper.Replace(m.Sender),
		fieldEscaper.Replace(m.Content),
		m.Timestamp.Format(TimestampLayout),
	}
	return strings.Join(fields, "|")
}

// Decode parses one wire line back into a record. The ID field is not
// carried on the wire and stays zero.
func Decode(line string) (Message, error) {
	fields, err := splitFields(line)
	if err != nil {
		return Message{}, err
	}
	if len(fields) != fieldCount {
		return Message{}, relayerrors.ErrMalformedRecord
	}

	at, err := time.Parse(TimestampLayout, fields[3])
	if err != nil {
		return Message{}, relayerrors.ErrMalformedRecord
	}

	return Message{
		Type:      MessageType(fields[0]),
		Sender:    fields[1],
		Content:   fields[2],
		Timestamp: at,
	}, nil
}

// splitFields splits on unescaped pipes and resolves escape sequences.
func splitFields(line string) ([]string, error) {
	var (
		fields  []string
		current strings.Builder
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '|':
			fields = append(fields, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	if escaped {
		return nil, relayerrors.ErrMalformedRecord
	}
	return append(fields, current.String()), nil
}
