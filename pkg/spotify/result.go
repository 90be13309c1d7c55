package spotify

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"strings"

	"github.com/beevik/etree"
)

// Result is a decoded response body. A Result for which Found reports false
// represents a 404 from the service and carries no tree.
type Result struct {
	format Format
	found  bool
	raw    []byte
	json   any
	xml    *etree.Document
}

// notFound is the outcome for a 404 response.
func notFound(f Format) *Result {
	return &Result{format: f}
}

// Found reports whether the service returned data for the query.
func (r *Result) Found() bool { return r != nil && r.found }

// Format is the response format the body was decoded with.
func (r *Result) Format() Format { return r.format }

// Raw returns the undecoded response body.
func (r *Result) Raw() []byte { return r.raw }

// JSON returns the decoded value tree for JSON responses and nil otherwise.
// Objects decode to map[string]any, arrays to []any and numbers to float64.
func (r *Result) JSON() any { return r.json }

// XML returns the element tree for XML responses and nil otherwise.
func (r *Result) XML() *etree.Document { return r.xml }

// Decode unmarshals the raw body into v using the decoder that matches the
// result's format. Types meant to work in both formats should carry json and
// xml struct tags.
func (r *Result) Decode(v any) error {
	if !r.Found() {
		return errors.New("no data to decode")
	}
	if len(bytes.TrimSpace(r.raw)) == 0 {
		return nil
	}
	var err error
	if r.format == FormatJSON {
		err = json.Unmarshal(r.raw, v)
	} else {
		err = xml.Unmarshal(r.raw, v)
	}
	if err != nil {
		return &DecodeError{Format: r.format, Err: err}
	}
	return nil
}

// decodeBody parses body according to f. An empty body is accepted for 304
// responses only; the Result then carries no tree.
func decodeBody(f Format, status int, body []byte) (*Result, error) {
	res := &Result{format: f, found: true, raw: body}
	if len(bytes.TrimSpace(body)) == 0 {
		if status == 304 {
			return res, nil
		}
		return nil, &DecodeError{Format: f, Err: errors.New("empty body")}
	}
	switch f {
	case FormatJSON:
		if err := json.Unmarshal(body, &res.json); err != nil {
			return nil, &DecodeError{Format: f, Err: err}
		}
	case FormatXML:
		doc := etree.NewDocument()
		if err := doc.ReadFromBytes(body); err != nil {
			return nil, &DecodeError{Format: f, Err: err}
		}
		if err := singleRoot(doc); err != nil {
			return nil, &DecodeError{Format: f, Err: err}
		}
		res.xml = doc
	}
	return res, nil
}

// singleRoot reports an error unless doc holds exactly one element and no
// text outside it.
func singleRoot(doc *etree.Document) error {
	var roots int
	for _, tok := range doc.Child {
		switch tok := tok.(type) {
		case *etree.Element:
			roots++
		case *etree.CharData:
			if strings.TrimSpace(tok.Data) != "" {
				return errors.New("content outside root element")
			}
		}
	}
	switch {
	case roots == 0:
		return errors.New("no root element")
	case roots > 1:
		return errors.New("multiple root elements")
	}
	return nil
}
