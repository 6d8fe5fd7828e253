// Package artifacts stores the per ballot box artifact bundle (tally-sheet
// image, raw primary OCR response, serialized table) in a gocloud.dev blob
// bucket and relocates it into quarantine.
//
// Layout, per ballot box id:
//
//	images/{id}/cm.jpg                    verified image
//	textract/{id}/textract_data_cm.json   cached primary OCR response
//	textract/{id}/textract_table_cm.csv   serialized table
//	not_same/{id}/...                     the same three files once quarantined
//	not_same/{id}/review/...              secondary OCR output for manual review
//
// Reads and writes of an id hold its shared lock; Quarantine holds the
// exclusive one.
package artifacts

import "path"

// Artifact is one member of a ballot box bundle
type Artifact int

const (
	Image Artifact = iota
	Response
	Table
)

// Bundle lists every artifact that moves with a ballot box
var Bundle = []Artifact{Image, Response, Table}

const (
	quarantinePrefix = "not_same"
	reviewDir        = "review"
)

// FileName returns the file name of the artifact
func (a Artifact) FileName() string {
	switch a {
	case Image:
		return "cm.jpg"
	case Response:
		return "textract_data_cm.json"
	case Table:
		return "textract_table_cm.csv"
	default:
		return ""
	}
}

// String returns a short name used in logs
func (a Artifact) String() string {
	switch a {
	case Image:
		return "image"
	case Response:
		return "response"
	case Table:
		return "table"
	default:
		return "unknown"
	}
}

// ContentType returns the MIME type written with the artifact
func (a Artifact) ContentType() string {
	switch a {
	case Image:
		return "image/jpeg"
	case Response:
		return "application/json"
	default:
		return "text/csv; charset=utf-8"
	}
}

// VerifiedKey returns the bucket key of the artifact in verified storage
func (a Artifact) VerifiedKey(id string) string {
	if a == Image {
		return path.Join("images", id, a.FileName())
	}
	return path.Join("textract", id, a.FileName())
}

// QuarantineKey returns the bucket key of the artifact in quarantine
func (a Artifact) QuarantineKey(id string) string {
	return path.Join(quarantinePrefix, id, a.FileName())
}

// ReviewKey returns the bucket key of a review file of a quarantined id
func ReviewKey(id, name string) string {
	return path.Join(quarantinePrefix, id, reviewDir, name)
}
