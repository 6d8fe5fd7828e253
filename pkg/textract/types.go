package textract

// BlockType identifies the kind of element a Block represents
type BlockType string

const (
	BlockTypeTable            BlockType = "TABLE"
	BlockTypeCell             BlockType = "CELL"
	BlockTypeWord             BlockType = "WORD"
	BlockTypeSelectionElement BlockType = "SELECTION_ELEMENT"
)

// SelectionStatus is the checkbox state of a SELECTION_ELEMENT block
type SelectionStatus string

const (
	SelectionSelected    SelectionStatus = "SELECTED"
	SelectionNotSelected SelectionStatus = "NOT_SELECTED"
)

// RelationshipChild is the only relationship type followed when reducing tables
const RelationshipChild = "CHILD"

// Response is the persisted form of a table-analysis response.
// Field names follow the Textract wire format so cached files stay readable
// with the usual tooling.
type Response struct {
	Blocks []Block `json:"Blocks"`
}

// Block is one element of the flat block graph returned by the primary OCR
type Block struct {
	ID              string          `json:"Id"`
	BlockType       BlockType       `json:"BlockType"`
	RowIndex        int             `json:"RowIndex,omitempty"`    // CELL only, 1-based
	ColumnIndex     int             `json:"ColumnIndex,omitempty"` // CELL only, 1-based
	Text            string          `json:"Text,omitempty"`        // WORD only
	SelectionStatus SelectionStatus `json:"SelectionStatus,omitempty"`
	Relationships   []Relationship  `json:"Relationships,omitempty"`
}

// Relationship links a block to an ordered list of other block ids
type Relationship struct {
	Type string   `json:"Type"`
	IDs  []string `json:"Ids"`
}

// Children returns the ids of all CHILD relationships in order
func (b Block) Children() []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == RelationshipChild {
			ids = append(ids, rel.IDs...)
		}
	}
	return ids
}

// Table is a sparse grid of decoded cell text: row -> column -> text.
// Indices are 1-based as reported by the provider.
type Table map[int]map[int]string

// Set stores the text of a cell, creating the row on demand
func (t Table) Set(row, col int, text string) {
	cols, ok := t[row]
	if !ok {
		cols = make(map[int]string)
		t[row] = cols
	}
	cols[col] = text
}

// Cells returns the number of cells present in the table
func (t Table) Cells() int {
	n := 0
	for _, cols := range t {
		n += len(cols)
	}
	return n
}

// Extraction is the result of reducing every TABLE block of a response
type Extraction struct {
	Tables  []Table // In document order; label of Tables[i] is i+1
	NoTable bool    // True when the response contained no TABLE block
}
