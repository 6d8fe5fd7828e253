package textract

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when the block graph references an id
// that does not exist in the response
var ErrMalformedResponse = errors.New("malformed OCR response")

// BlocksIndex maps block ids to blocks for a single response
type BlocksIndex struct {
	blocks map[string]Block
	tables []string // TABLE block ids in document order
}

// NewIndex builds the id index of a response and verifies that every
// relationship target resolves inside it
func NewIndex(blocks []Block) (*BlocksIndex, error) {
	idx := &BlocksIndex{
		blocks: make(map[string]Block, len(blocks)),
	}
	for _, b := range blocks {
		if b.ID == "" {
			return nil, fmt.Errorf("%w: block of type %s has no id", ErrMalformedResponse, b.BlockType)
		}
		if _, dup := idx.blocks[b.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate block id %q", ErrMalformedResponse, b.ID)
		}
		idx.blocks[b.ID] = b
		if b.BlockType == BlockTypeTable {
			idx.tables = append(idx.tables, b.ID)
		}
	}

	for _, b := range blocks {
		for _, rel := range b.Relationships {
			for _, id := range rel.IDs {
				if _, ok := idx.blocks[id]; !ok {
					return nil, fmt.Errorf("%w: block %q references unknown %s id %q",
						ErrMalformedResponse, b.ID, rel.Type, id)
				}
			}
		}
	}

	return idx, nil
}

// Get returns the block with the given id
func (idx *BlocksIndex) Get(id string) (Block, bool) {
	b, ok := idx.blocks[id]
	return b, ok
}

// Len returns the number of indexed blocks
func (idx *BlocksIndex) Len() int {
	return len(idx.blocks)
}

// Tables returns the TABLE blocks in document order
func (idx *BlocksIndex) Tables() []Block {
	out := make([]Block, 0, len(idx.tables))
	for _, id := range idx.tables {
		out = append(out, idx.blocks[id])
	}
	return out
}

// children resolves the CHILD ids of a block
func (idx *BlocksIndex) children(b Block) ([]Block, error) {
	ids := b.Children()
	out := make([]Block, 0, len(ids))
	for _, id := range ids {
		child, ok := idx.blocks[id]
		if !ok {
			return nil, fmt.Errorf("%w: block %q references unknown child id %q", ErrMalformedResponse, b.ID, id)
		}
		out = append(out, child)
	}
	return out, nil
}
