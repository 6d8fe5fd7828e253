package gdocai

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/gardar/tallyocr/pkg/hocr"
)

// DocumentFromProto converts a Document AI response to an hocr.Document.
// Paragraphs outside every block get an implicit block of their own, and
// tokens outside every paragraph are dropped.
func DocumentFromProto(doc *documentaipb.Document, imageName string) (*hocr.Document, error) {
	if doc == nil {
		return nil, errors.New("no Document AI document provided")
	}
	text := []rune(doc.GetText())
	lang := documentLanguage(doc)

	result := &hocr.Document{
		Title:    imageName,
		Language: lang,
		Metadata: map[string]string{
			"ocr-system":          "Document AI OCR",
			"ocr-number-of-pages": strconv.Itoa(len(doc.GetPages())),
			"ocr-capabilities":    "ocr_page ocr_carea ocr_par ocrx_word ocrx_cinfo",
		},
	}
	if lang != "" {
		result.Metadata["ocr-langs"] = lang
	}

	for i, page := range doc.GetPages() {
		result.Pages = append(result.Pages, convertPage(page, text, i+1, imageName))
	}
	return result, nil
}

func convertPage(page *documentaipb.Document_Page, text []rune, index int, imageName string) hocr.Page {
	num := int(page.GetPageNumber())
	if num <= 0 {
		num = index
	}
	dim := page.GetDimension()

	out := hocr.Page{
		ID:         fmt.Sprintf("page_%d", num),
		PageNumber: num,
		ImageName:  imageName,
		Lang:       language(page.GetDetectedLanguages()),
		BBox:       hocr.NewBoundingBox(0, 0, float64(dim.GetWidth()), float64(dim.GetHeight())),
	}

	tokens := sortedTokens(page.GetTokens())
	symbols := page.GetSymbols()
	paras := page.GetParagraphs()
	assigned := make([]bool, len(paras))

	for bi, block := range page.GetBlocks() {
		bspan := spanOf(block.GetLayout())
		ob := hocr.Block{
			ID:   fmt.Sprintf("block_%d_%d", num, bi+1),
			BBox: boundingBox(block.GetLayout(), dim),
		}
		for pi, para := range paras {
			if assigned[pi] || !bspan.contains(spanOf(para.GetLayout())) {
				continue
			}
			assigned[pi] = true
			ob.Paragraphs = append(ob.Paragraphs, convertParagraph(para, tokens, symbols, text, dim, num, pi+1))
		}
		out.Blocks = append(out.Blocks, ob)
	}

	for pi, para := range paras {
		if assigned[pi] {
			continue
		}
		op := convertParagraph(para, tokens, symbols, text, dim, num, pi+1)
		out.Blocks = append(out.Blocks, hocr.Block{
			ID:         fmt.Sprintf("block_%d_p%d", num, pi+1),
			BBox:       op.BBox,
			Paragraphs: []hocr.Paragraph{op},
		})
	}
	return out
}

func convertParagraph(para *documentaipb.Document_Page_Paragraph, tokens []*documentaipb.Document_Page_Token,
	symbols []*documentaipb.Document_Page_Symbol, text []rune, dim *documentaipb.Document_Page_Dimension, pageNum, index int) hocr.Paragraph {

	pspan := spanOf(para.GetLayout())
	out := hocr.Paragraph{
		ID:   fmt.Sprintf("par_%d_%d", pageNum, index),
		Lang: language(para.GetDetectedLanguages()),
		BBox: boundingBox(para.GetLayout(), dim),
	}

	for _, tok := range tokens {
		tspan := spanOf(tok.GetLayout())
		if !pspan.contains(tspan) {
			continue
		}
		word := hocr.Word{
			ID:         fmt.Sprintf("word_%d_%d_%d", pageNum, index, len(out.Words)+1),
			Text:       cleanToken(textFromLayout(tok.GetLayout(), text)),
			BBox:       boundingBox(tok.GetLayout(), dim),
			Confidence: confidence(tok.GetLayout()),
			Lang:       language(tok.GetDetectedLanguages()),
		}
		if word.Text == "" {
			continue
		}
		for _, sym := range symbols {
			if !tspan.contains(spanOf(sym.GetLayout())) {
				continue
			}
			s := cleanToken(textFromLayout(sym.GetLayout(), text))
			if s == "" {
				continue
			}
			word.Symbols = append(word.Symbols, hocr.Symbol{
				Text:       s,
				BBox:       boundingBox(sym.GetLayout(), dim),
				Confidence: confidence(sym.GetLayout()),
			})
		}
		out.Words = append(out.Words, word)
	}
	return out
}

// sortedTokens orders tokens by their position in the document text
func sortedTokens(tokens []*documentaipb.Document_Page_Token) []*documentaipb.Document_Page_Token {
	out := append([]*documentaipb.Document_Page_Token(nil), tokens...)
	sort.SliceStable(out, func(i, j int) bool {
		return spanOf(out[i].GetLayout()).start < spanOf(out[j].GetLayout()).start
	})
	return out
}

// documentLanguage finds the most common language across pages and tokens.
// Ties go to the alphabetically first code.
func documentLanguage(doc *documentaipb.Document) string {
	counts := make(map[string]int)
	for _, page := range doc.GetPages() {
		for _, l := range page.GetDetectedLanguages() {
			counts[l.GetLanguageCode()]++
		}
		for _, tok := range page.GetTokens() {
			for _, l := range tok.GetDetectedLanguages() {
				counts[l.GetLanguageCode()]++
			}
		}
	}

	best, bestCount := "", 0
	for lang, n := range counts {
		if lang == "" {
			continue
		}
		if n > bestCount || (n == bestCount && lang < best) {
			best, bestCount = lang, n
		}
	}
	return best
}
