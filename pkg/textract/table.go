package textract

import (
	"fmt"
	"strings"
)

// ReduceTable converts a TABLE block into a grid of decoded cell text.
// Only CHILD blocks of type CELL contribute; each cell is decoded from its own
// children.
func ReduceTable(idx *BlocksIndex, table Block) (Table, error) {
	if table.BlockType != BlockTypeTable {
		return nil, fmt.Errorf("block %q is %s, not %s", table.ID, table.BlockType, BlockTypeTable)
	}

	cells, err := idx.children(table)
	if err != nil {
		return nil, err
	}

	result := make(Table)
	for _, cell := range cells {
		if cell.BlockType != BlockTypeCell {
			continue
		}
		text, err := CellText(idx, cell)
		if err != nil {
			return nil, err
		}
		result.Set(cell.RowIndex, cell.ColumnIndex, text)
	}
	return result, nil
}

// CellText decodes a CELL block. Each WORD contributes its text followed by a
// space and each selected checkbox contributes "X ". A cell without children
// decodes to the empty string.
func CellText(idx *BlocksIndex, cell Block) (string, error) {
	children, err := idx.children(cell)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, child := range children {
		switch child.BlockType {
		case BlockTypeWord:
			sb.WriteString(child.Text)
			sb.WriteString(" ")
		case BlockTypeSelectionElement:
			if child.SelectionStatus == SelectionSelected {
				sb.WriteString("X ")
			}
		}
	}
	return sb.String(), nil
}

// ExtractTables reduces every TABLE block of the index in document order.
// A response without tables is not an error; it is reported through
// Extraction.NoTable so the caller can still run reconciliation.
func ExtractTables(idx *BlocksIndex) (Extraction, error) {
	tables := idx.Tables()
	if len(tables) == 0 {
		return Extraction{NoTable: true}, nil
	}

	out := Extraction{Tables: make([]Table, 0, len(tables))}
	for i, tb := range tables {
		t, err := ReduceTable(idx, tb)
		if err != nil {
			return Extraction{}, fmt.Errorf("table %d: %w", i+1, err)
		}
		out.Tables = append(out.Tables, t)
	}
	return out, nil
}
