package cbhttpx

import (
	"encoding/json"
	"errors"
)

type rowStreamState int

const (
	rowStreamStateStart    rowStreamState = 0
	rowStreamStateRows     rowStreamState = 1
	rowStreamStatePostRows rowStreamState = 2
	rowStreamStateEnd      rowStreamState = 3
)

// RawJsonRowStreamer walks a JSON object of the form
// {"<prelude attrs>", "<RowsAttrib>": [rows...], "<epilog attrs>"}
// without buffering the rows array.
type RawJsonRowStreamer struct {
	Decoder    *json.Decoder
	RowsAttrib string

	attribs map[string]json.RawMessage
	state   rowStreamState
}

// readAttribs consumes object members until the rows attribute or the end
// of the object is reached. It returns true when positioned at the rows.
func (s *RawJsonRowStreamer) readAttribs(stopAtRows bool) (bool, error) {
	for {
		if !s.Decoder.More() {
			return false, nil
		}

		t, err := s.Decoder.Token()
		if err != nil {
			return false, err
		}
		key, keyOk := t.(string)
		if !keyOk {
			return false, errors.New("expected an object property name")
		}

		if stopAtRows && key == s.RowsAttrib {
			t, err = s.Decoder.Token()
			if err != nil {
				return false, err
			}

			// a null rows attribute is treated as no rows
			if t == nil {
				continue
			}

			if delim, ok := t.(json.Delim); !ok || delim != '[' {
				return false, errors.New("expected an opening bracket for the rows")
			}
			return true, nil
		}

		var value json.RawMessage
		if err := s.Decoder.Decode(&value); err != nil {
			return false, err
		}
		s.attribs[key] = value
	}
}

func (s *RawJsonRowStreamer) begin() error {
	if s.state != rowStreamStateStart {
		return errors.New("unexpected parsing state during begin")
	}

	s.attribs = make(map[string]json.RawMessage)

	t, err := s.Decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != '{' {
		return errors.New("expected an opening brace for the result")
	}

	atRows, err := s.readAttribs(true)
	if err != nil {
		return err
	}

	switch {
	case !atRows:
		s.state = rowStreamStateEnd
	case s.Decoder.More():
		s.state = rowStreamStateRows
	default:
		s.state = rowStreamStatePostRows
	}

	return nil
}

func (s *RawJsonRowStreamer) end() error {
	if s.state < rowStreamStatePostRows {
		return errors.New("unexpected parsing state during end")
	}

	if s.state == rowStreamStateEnd {
		return nil
	}

	t, err := s.Decoder.Token()
	if err != nil {
		return err
	}
	if delim, ok := t.(json.Delim); !ok || delim != ']' {
		return errors.New("expected an ending bracket for the rows")
	}

	if _, err := s.readAttribs(false); err != nil {
		return err
	}

	s.state = rowStreamStateEnd
	return nil
}

// ReadPrelude returns the attributes that precede the rows.
func (s *RawJsonRowStreamer) ReadPrelude() (json.RawMessage, error) {
	if err := s.begin(); err != nil {
		return nil, err
	}

	return json.Marshal(s.attribs)
}

func (s *RawJsonRowStreamer) HasMoreRows() bool {
	if s.state != rowStreamStateRows {
		return false
	}

	return s.Decoder.More()
}

// ReadRow returns the next row, or nil once the rows are exhausted.
func (s *RawJsonRowStreamer) ReadRow() (json.RawMessage, error) {
	if s.state < rowStreamStateRows {
		return nil, errors.New("unexpected parsing state during readRow")
	}

	if s.state > rowStreamStateRows {
		return nil, nil
	}

	var msg json.RawMessage
	if err := s.Decoder.Decode(&msg); err != nil {
		return nil, err
	}

	if !s.Decoder.More() {
		s.state = rowStreamStatePostRows
	}

	return msg, nil
}

// ReadEpilog returns every non-row attribute of the result, including the
// ones already returned by ReadPrelude.
func (s *RawJsonRowStreamer) ReadEpilog() (json.RawMessage, error) {
	if err := s.end(); err != nil {
		return nil, err
	}

	return json.Marshal(s.attribs)
}
