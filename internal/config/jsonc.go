package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks comments and trailing commas with spaces so that
// byte offsets reported by encoding/json still point into the original file.
func normalizeJSONC(content string) (string, error) {
	buf := []byte(content)
	if err := blankComments(buf); err != nil {
		return "", err
	}
	blankTrailingCommas(buf)
	return string(buf), nil
}

// blankComments overwrites // and /* */ comments outside strings in place.
// Newlines are kept so line numbers survive.
func blankComments(buf []byte) error {
	var s stringTracker
	for i := 0; i < len(buf); i++ {
		if s.step(buf[i]) {
			continue
		}
		if buf[i] != '/' || i+1 >= len(buf) {
			continue
		}

		switch buf[i+1] {
		case '/':
			for i < len(buf) && buf[i] != '\n' && buf[i] != '\r' {
				buf[i] = ' '
				i++
			}
		case '*':
			end := bytes.Index(buf[i+2:], []byte("*/"))
			if end < 0 {
				return errors.New("unterminated block comment in JSONC")
			}
			stop := i + 2 + end + 2
			for ; i < stop; i++ {
				if buf[i] != '\n' && buf[i] != '\r' && buf[i] != '\t' {
					buf[i] = ' '
				}
			}
			i--
		}
	}
	return nil
}

// blankTrailingCommas removes a comma whose next non-space byte closes an
// object or array. Comments must already be blanked.
func blankTrailingCommas(buf []byte) {
	var s stringTracker
	for i := 0; i < len(buf); i++ {
		if s.step(buf[i]) || buf[i] != ',' {
			continue
		}
		j := i + 1
		for j < len(buf) && isJSONWhitespace(buf[j]) {
			j++
		}
		if j < len(buf) && (buf[j] == '}' || buf[j] == ']') {
			buf[i] = ' '
		}
	}
}

// stringTracker follows JSON string boundaries one byte at a time.
type stringTracker struct {
	inString bool
	escape   bool
}

// step consumes ch and reports whether it belongs to a string literal.
func (s *stringTracker) step(ch byte) bool {
	switch {
	case s.escape:
		s.escape = false
		return true
	case s.inString && ch == '\\':
		s.escape = true
		return true
	case ch == '"':
		s.inString = !s.inString
		return true
	default:
		return s.inString
	}
}

func isJSONWhitespace(ch byte) bool {
	return ch == ' ' || ch == '\n' || ch == '\r' || ch == '\t'
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// wrapJSONDecodeError prefixes decode failures with a 1-based line and column.
func wrapJSONDecodeError(content string, err error) error {
	offset := int64(-1)

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		if field, ok := unknownField(err); ok {
			if idx := strings.Index(content, `"`+field+`"`); idx >= 0 {
				offset = int64(idx + 1)
			}
		}
	}
	if offset < 0 {
		return err
	}

	line, col := offsetToLineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

func unknownField(err error) (string, bool) {
	const prefix = `json: unknown field "`
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) || !strings.HasSuffix(msg, `"`) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(msg, prefix), `"`), true
}

// offsetToLineCol maps a decoder offset (bytes consumed) to the position of
// the last consumed byte.
func offsetToLineCol(content string, offset int64) (int, int) {
	limit := min(int(offset), len(content))
	if limit <= 0 {
		return 1, 1
	}
	before := content[:limit-1]
	line := strings.Count(before, "\n") + 1
	col := limit - strings.LastIndex(before, "\n") - 1
	return line, col
}
