// Package textract turns AWS Textract table-analysis responses into vote tables.
//
// Textract returns a document as a flat list of typed blocks linked by CHILD
// relationships. This package indexes those blocks by id, walks the graph from
// each TABLE block down to its CELL, WORD and SELECTION_ELEMENT blocks, and
// renders the resulting grids as sanitized comma separated text.
//
// Main Functions:
//
// - NewIndex: Builds and validates the id index of a response
// - ExtractTables: Reduces every TABLE block to a Table
// - SerializeTables / Sanitize: Render tables as text safe for candidate matching
// - TableText: Runs the whole chain on a decoded response
// - Client.AnalyzeTables: Requests table analysis from AWS Textract
//
// Usage Requirements:
//
// - AWS credentials resolvable through the default credential chain
// - Permission to call textract:AnalyzeDocument (and s3:GetObject in S3 mode)
package textract

import (
	"encoding/json"
	"fmt"
)

// Result is the outcome of running the reducer and serializer on one response
type Result struct {
	Extraction Extraction
	Sections   []string // Sanitized text of each table, in order
	Text       string   // Sanitized text of all tables
}

// TableText indexes a response, reduces its tables and renders them as
// sanitized text
func TableText(resp *Response) (*Result, error) {
	if resp == nil {
		return nil, fmt.Errorf("%w: nil response", ErrMalformedResponse)
	}
	idx, err := NewIndex(resp.Blocks)
	if err != nil {
		return nil, err
	}
	ext, err := ExtractTables(idx)
	if err != nil {
		return nil, err
	}

	res := &Result{Extraction: ext}
	for i, t := range ext.Tables {
		res.Sections = append(res.Sections, Sanitize(SerializeTable(i+1, t)))
	}
	res.Text = Sanitize(SerializeTables(ext.Tables))
	return res, nil
}

// DecodeResponse parses a persisted response
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &resp, nil
}

// EncodeResponse renders a response in its persisted form
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.MarshalIndent(resp, "", "  ")
}
