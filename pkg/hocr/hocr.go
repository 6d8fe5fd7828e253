// Package hocr models recognized text as pages, blocks, paragraphs, words and
// symbols, and converts that model to and from hOCR markup.
//
// Secondary OCR providers produce a Document; the review bundle of a
// quarantined ballot box stores it as hOCR, as plain text and as a searchable
// PDF.
package hocr
