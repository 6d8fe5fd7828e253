package textract

import (
	"errors"
	"fmt"
	"testing"
)

func word(id, text string) Block {
	return Block{ID: id, BlockType: BlockTypeWord, Text: text}
}

func cell(id string, row, col int, children ...string) Block {
	b := Block{ID: id, BlockType: BlockTypeCell, RowIndex: row, ColumnIndex: col}
	if len(children) > 0 {
		b.Relationships = []Relationship{{Type: RelationshipChild, IDs: children}}
	}
	return b
}

func table(id string, children ...string) Block {
	return Block{ID: id, BlockType: BlockTypeTable, Relationships: []Relationship{{Type: RelationshipChild, IDs: children}}}
}

func mustIndex(t *testing.T, blocks ...Block) *BlocksIndex {
	t.Helper()
	idx, err := NewIndex(blocks)
	if err != nil {
		t.Fatalf("NewIndex returned error: %v", err)
	}
	return idx
}

func TestReduceTablePlacesEveryCell(t *testing.T) {
	var blocks []Block
	var cellIDs []string
	n := 0
	for row := 1; row <= 4; row++ {
		for col := 1; col <= 3; col++ {
			n++
			wid := fmt.Sprintf("w%d", n)
			cid := fmt.Sprintf("c%d", n)
			blocks = append(blocks, word(wid, fmt.Sprintf("r%dc%d", row, col)), cell(cid, row, col, wid))
			cellIDs = append(cellIDs, cid)
		}
	}
	tb := table("t1", cellIDs...)
	blocks = append(blocks, tb)

	got, err := ReduceTable(mustIndex(t, blocks...), tb)
	if err != nil {
		t.Fatalf("ReduceTable returned error: %v", err)
	}
	if got.Cells() != 12 {
		t.Fatalf("expected 12 cells, got %d", got.Cells())
	}
	for row := 1; row <= 4; row++ {
		for col := 1; col <= 3; col++ {
			want := fmt.Sprintf("r%dc%d ", row, col)
			if got[row][col] != want {
				t.Fatalf("cell (%d,%d) = %q, want %q", row, col, got[row][col], want)
			}
		}
	}
}

func TestCellTextSelectionElements(t *testing.T) {
	tests := []struct {
		name   string
		status SelectionStatus
		want   string
	}{
		{"selected", SelectionSelected, "YES X "},
		{"not selected", SelectionNotSelected, "YES "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Block{ID: "s1", BlockType: BlockTypeSelectionElement, SelectionStatus: tt.status}
			c := cell("c1", 1, 1, "w1", "s1")
			idx := mustIndex(t, word("w1", "YES"), sel, c)

			got, err := CellText(idx, c)
			if err != nil {
				t.Fatalf("CellText returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("CellText = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCellTextWithoutChildrenIsEmpty(t *testing.T) {
	c := cell("c1", 2, 2)
	got, err := CellText(mustIndex(t, c), c)
	if err != nil {
		t.Fatalf("CellText returned error: %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestReduceTableIgnoresNonCellChildren(t *testing.T) {
	tb := table("t1", "c1", "w2")
	idx := mustIndex(t, word("w1", "A"), word("w2", "stray"), cell("c1", 1, 1, "w1"), tb)

	got, err := ReduceTable(idx, tb)
	if err != nil {
		t.Fatalf("ReduceTable returned error: %v", err)
	}
	if got.Cells() != 1 || got[1][1] != "A " {
		t.Fatalf("unexpected table: %#v", got)
	}
}

func TestNewIndexRejectsDanglingChild(t *testing.T) {
	_, err := NewIndex([]Block{table("t1", "missing")})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestExtractTablesWithoutTable(t *testing.T) {
	ext, err := ExtractTables(mustIndex(t, word("w1", "TOPLAM")))
	if err != nil {
		t.Fatalf("ExtractTables returned error: %v", err)
	}
	if !ext.NoTable {
		t.Fatal("expected NoTable to be set")
	}
	if len(ext.Tables) != 0 {
		t.Fatalf("expected no tables, got %d", len(ext.Tables))
	}
}

func TestExtractTablesKeepsDocumentOrder(t *testing.T) {
	idx := mustIndex(t,
		table("t2", "c2"), cell("c2", 1, 1, "w2"), word("w2", "SECOND"),
		table("t1", "c1"), cell("c1", 1, 1, "w1"), word("w1", "FIRST"),
	)
	ext, err := ExtractTables(idx)
	if err != nil {
		t.Fatalf("ExtractTables returned error: %v", err)
	}
	if len(ext.Tables) != 2 {
		t.Fatalf("expected 2 tables, got %d", len(ext.Tables))
	}
	if ext.Tables[0][1][1] != "SECOND " || ext.Tables[1][1][1] != "FIRST " {
		t.Fatalf("tables out of document order: %#v", ext.Tables)
	}
}
