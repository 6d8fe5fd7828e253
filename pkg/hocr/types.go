package hocr

// Document is the recognized content of one image
type Document struct {
	Title    string            // Document title
	Language string            // Dominant language code
	Metadata map[string]string // ocr-system, ocr-langs, ...
	Pages    []Page
}

// Page is one page of recognized text
// Corresponds to hOCR element with class: 'ocr_page'
type Page struct {
	ID         string
	PageNumber int // 1-based
	ImageName  string
	Lang       string
	BBox       BoundingBox
	Blocks     []Block
}

// Class returns the hOCR class of a page
func (Page) Class() string { return "ocr_page" }

// Block is a layout block (a table cell group, a heading, a column)
// Corresponds to hOCR element with class: 'ocr_carea'
type Block struct {
	ID         string
	BBox       BoundingBox
	Paragraphs []Paragraph
}

// Class returns the hOCR class of a block
func (Block) Class() string { return "ocr_carea" }

// Paragraph groups the words of a block
// Corresponds to hOCR element with class: 'ocr_par'
type Paragraph struct {
	ID    string
	Lang  string
	BBox  BoundingBox
	Words []Word
}

// Class returns the hOCR class of a paragraph
func (Paragraph) Class() string { return "ocr_par" }

// Word is a recognized word
// Corresponds to hOCR element with class: 'ocrx_word'
type Word struct {
	ID         string
	Text       string // Text as reported for the whole word
	BBox       BoundingBox
	Confidence float64 // 0-100
	Lang       string
	Symbols    []Symbol
}

// Class returns the hOCR class of a word
func (Word) Class() string { return "ocrx_word" }

// Symbol is a single recognized character
// Corresponds to hOCR element with class: 'ocrx_cinfo'
type Symbol struct {
	Text       string
	BBox       BoundingBox
	Confidence float64
}

// Class returns the hOCR class of a symbol
func (Symbol) Class() string { return "ocrx_cinfo" }

// BoundingBox represents a rectangle in image pixels
type BoundingBox struct {
	X1 float64 // Left
	Y1 float64 // Top
	X2 float64 // Right
	Y2 float64 // Bottom
}

// NewBoundingBox creates a bounding box from its corners
func NewBoundingBox(x1, y1, x2, y2 float64) BoundingBox {
	return BoundingBox{X1: x1, Y1: y1, X2: x2, Y2: y2}
}

// Empty reports whether the box has no area
func (b BoundingBox) Empty() bool {
	return b.X2 <= b.X1 || b.Y2 <= b.Y1
}

// Title renders the box as an hOCR title property
func (b BoundingBox) Title() string {
	return formatBBox(b)
}
