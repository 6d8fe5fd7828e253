package hocr

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"
)

//go:embed templates/hocr.tmpl
var templateFS embed.FS

var hocrTemplate = template.Must(template.New("hocr.tmpl").Funcs(template.FuncMap{
	"bbox":   formatBBox,
	"conf":   func(c float64) string { return strconv.FormatFloat(c, 'f', 0, 64) },
	"trim":   strings.TrimSpace,
	"pageno": pageNumber,
}).ParseFS(templateFS, "templates/hocr.tmpl"))

// Generate renders a Document as an hOCR HTML document
func Generate(doc *Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("no hOCR document provided")
	}
	var buf bytes.Buffer
	if err := hocrTemplate.Execute(&buf, doc); err != nil {
		return "", fmt.Errorf("error rendering hOCR template: %w", err)
	}
	return buf.String(), nil
}

func formatBBox(b BoundingBox) string {
	return fmt.Sprintf("bbox %d %d %d %d", int(b.X1+0.5), int(b.Y1+0.5), int(b.X2+0.5), int(b.Y2+0.5))
}
