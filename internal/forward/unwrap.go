package forward

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// Response is the part of the Forward API answer we rely on.
type Response struct {
	RequestID           string               `json:"request_id,omitempty"`
	DestinationResponse *DestinationResponse `json:"destination_response,omitempty"`
}

type DestinationResponse struct {
	Status  int                 `json:"status,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
	Body    string              `json:"body"`
}

// Unwrap extracts destination_response.body from a Forward API response,
// parses it, takes its "data" string and returns that string's JSON value.
func Unwrap(body []byte) (json.RawMessage, error) {
	top, err := object(body, "response")
	if err != nil {
		return nil, err
	}
	drRaw, err := field(top, "", "destination_response")
	if err != nil {
		return nil, err
	}
	var dr map[string]json.RawMessage
	if err := json.Unmarshal(drRaw, &dr); err != nil {
		return nil, &ResponseShapeError{Path: "destination_response", Msg: "not an object", Err: err}
	}
	inner, err := stringField(dr, "destination_response", "body")
	if err != nil {
		return nil, err
	}

	payload, err := object([]byte(inner), "destination_response.body")
	if err != nil {
		return nil, err
	}
	data, err := stringField(payload, "destination_response.body", "data")
	if err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace([]byte(data))
	if !json.Valid(raw) {
		return nil, &DecodeError{Layer: "data", Err: syntaxErr(raw)}
	}
	if err := checkDuplicateKeys(raw); err != nil {
		return nil, &DecodeError{Layer: "data", Err: err}
	}
	return json.RawMessage(raw), nil
}

// WritePretty writes raw with two-space indentation and a trailing newline.
func WritePretty(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return &DecodeError{Layer: "data", Err: err}
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func object(b []byte, layer string) (map[string]json.RawMessage, error) {
	if !json.Valid(b) {
		return nil, &DecodeError{Layer: layer, Err: syntaxErr(b)}
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil || m == nil {
		return nil, &ResponseShapeError{Path: layerPath(layer), Msg: "not an object", Err: err}
	}
	return m, nil
}

func field(m map[string]json.RawMessage, parent, key string) (json.RawMessage, error) {
	path := joinPath(parent, key)
	v, ok := m[key]
	if !ok || bytes.Equal(bytes.TrimSpace(v), []byte("null")) {
		return nil, &ResponseShapeError{Path: path, Msg: "missing"}
	}
	return v, nil
}

func stringField(m map[string]json.RawMessage, parent, key string) (string, error) {
	v, err := field(m, parent, key)
	if err != nil {
		return "", err
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", &ResponseShapeError{Path: joinPath(parent, key), Msg: "not a string", Err: err}
	}
	return s, nil
}

// checkDuplicateKeys rejects objects that repeat a key at any depth.
// The pretty printer works on the raw bytes and would otherwise print both.
func checkDuplicateKeys(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return walkValue(dec, "$")
}

func walkValue(dec *json.Decoder, path string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch d {
	case '{':
		seen := map[string]bool{}
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			k := kt.(string)
			if seen[k] {
				return fmt.Errorf("duplicate key %q at %s", k, path)
			}
			seen[k] = true
			if err := walkValue(dec, path+"."+k); err != nil {
				return err
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			if err := walkValue(dec, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	_, err = dec.Token() // closing delimiter
	return err
}

func syntaxErr(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return fmt.Errorf("invalid json")
}

func layerPath(layer string) string {
	if layer == "response" {
		return "$"
	}
	return layer
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
