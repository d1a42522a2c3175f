// Package extract turns upstream JSON payloads into normalized records.
//
// Every extractor makes a single forward pass over the token stream of
// encoding/json's Decoder; no intermediate object graph is built. Payload
// shapes are an implicit contract with the upstream services, so any shape
// change surfaces as ErrMalformed rather than a panic.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	// ErrEmptyPayload is returned for blank input.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrMalformed is returned when a payload cannot be parsed or does not
	// have the expected shape.
	ErrMalformed = errors.New("malformed payload")
)

type eventKind int

const (
	objectStart eventKind = iota
	objectEnd
	arrayStart
	arrayEnd
	value
)

// event is one step of the scan. key is the member name that owns the token
// (for array elements, the name of the array). depth is the number of
// containers enclosing the token.
type event struct {
	kind  eventKind
	key   string
	depth int
	tok   json.Token
}

type frame struct {
	object  bool
	name    string
	key     string
	wantKey bool
}

type scanner struct {
	dec   *json.Decoder
	stack []frame
}

func newScanner(payload string) (*scanner, error) {
	if strings.TrimSpace(payload) == "" {
		return nil, ErrEmptyPayload
	}
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	return &scanner{dec: dec}, nil
}

// next returns the next event, or io.EOF once the payload is consumed.
func (s *scanner) next() (event, error) {
	for {
		tok, err := s.dec.Token()
		if err == io.EOF {
			if len(s.stack) > 0 {
				return event{}, fmt.Errorf("%w: %v", ErrMalformed, io.ErrUnexpectedEOF)
			}
			return event{}, io.EOF
		}
		if err != nil {
			return event{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		var top *frame
		if n := len(s.stack); n > 0 {
			top = &s.stack[n-1]
		}

		if top != nil && top.object && top.wantKey {
			if tok == json.Delim('}') {
				name := top.name
				s.stack = s.stack[:len(s.stack)-1]
				return event{kind: objectEnd, key: name, depth: len(s.stack)}, nil
			}
			key, ok := tok.(string)
			if !ok {
				return event{}, fmt.Errorf("%w: unexpected token %v", ErrMalformed, tok)
			}
			top.key = key
			top.wantKey = false
			continue
		}

		key := ""
		if top != nil {
			if top.object {
				key = top.key
				top.wantKey = true
			} else {
				key = top.name
			}
		}
		depth := len(s.stack)

		switch tok {
		case json.Delim('{'):
			s.stack = append(s.stack, frame{object: true, name: key, wantKey: true})
			return event{kind: objectStart, key: key, depth: depth}, nil
		case json.Delim('['):
			s.stack = append(s.stack, frame{name: key})
			return event{kind: arrayStart, key: key, depth: depth}, nil
		case json.Delim(']'):
			name := top.name
			s.stack = s.stack[:len(s.stack)-1]
			return event{kind: arrayEnd, key: name, depth: len(s.stack)}, nil
		}
		return event{kind: value, key: key, depth: depth, tok: tok}, nil
	}
}

// number accepts JSON numbers and numeric strings.
func number(tok json.Token) (float64, error) {
	switch v := tok.(type) {
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return f, nil
	}
	return 0, fmt.Errorf("%w: expected number, got %T", ErrMalformed, tok)
}
