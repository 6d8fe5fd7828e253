package pdfocr

// Config holds options for rendering the review PDF
type Config struct {
	Debug     bool   // Draw the text in red with word boxes instead of hiding it
	LayerName string // Base name of the OCR layer; the page number is appended
	Font      FontConfig
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() Config {
	return Config{
		LayerName: "OCR Text",
		Font:      DefaultFont,
	}
}

// FontConfig contains font settings for OCR text rendering
type FontConfig struct {
	Name        string  // Font name (e.g., "Helvetica")
	Style       string  // Font style ("", "B", "I", "BI")
	Size        float64 // Default font size
	AscentRatio float64 // Vertical positioning ratio
}

// DefaultFont is Helvetica, one of the PDF core fonts
var DefaultFont = FontConfig{
	Name:        "Helvetica",
	Size:        10,
	AscentRatio: 0.718,
}

func (c Config) withDefaults() Config {
	if c.LayerName == "" {
		c.LayerName = DefaultConfig().LayerName
	}
	if c.Font.Name == "" {
		c.Font = DefaultFont
	}
	return c
}
