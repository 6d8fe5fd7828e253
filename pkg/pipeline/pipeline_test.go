package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"gocloud.dev/blob"
	"gocloud.dev/blob/memblob"

	"github.com/gardar/tallyocr/pkg/artifacts"
	"github.com/gardar/tallyocr/pkg/ballot"
	"github.com/gardar/tallyocr/pkg/hocr"
	"github.com/gardar/tallyocr/pkg/logging"
	"github.com/gardar/tallyocr/pkg/outcome"
	"github.com/gardar/tallyocr/pkg/tally"
	"github.com/gardar/tallyocr/pkg/textract"
)

func sheetPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 200, 100))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

type fakeImages struct {
	data  map[string][]byte
	calls atomic.Int32
}

func (f *fakeImages) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	data, ok := f.data[url]
	if !ok {
		return nil, &ballot.ImageFetchError{URL: url, Status: 404}
	}
	return data, nil
}

// fakePrimary answers with a single two-column table built from rows
type fakePrimary struct {
	rows  [][2]string
	resp  *textract.Response // Overrides rows when set
	err   error
	calls atomic.Int32
}

func (f *fakePrimary) AnalyzeTables(_ context.Context, doc textract.Document) (*textract.Response, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if len(doc.Bytes) == 0 {
		return nil, errors.New("empty document")
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return tableResponse(f.rows), nil
}

func tableResponse(rows [][2]string) *textract.Response {
	resp := &textract.Response{}
	var cells []string
	for r, row := range rows {
		for c, text := range row {
			wid := fmt.Sprintf("w%d_%d", r+1, c+1)
			cid := fmt.Sprintf("c%d_%d", r+1, c+1)
			resp.Blocks = append(resp.Blocks,
				textract.Block{ID: wid, BlockType: textract.BlockTypeWord, Text: text},
				textract.Block{
					ID: cid, BlockType: textract.BlockTypeCell, RowIndex: r + 1, ColumnIndex: c + 1,
					Relationships: []textract.Relationship{{Type: textract.RelationshipChild, IDs: []string{wid}}},
				})
			cells = append(cells, cid)
		}
	}
	resp.Blocks = append(resp.Blocks, textract.Block{
		ID: "t1", BlockType: textract.BlockTypeTable,
		Relationships: []textract.Relationship{{Type: textract.RelationshipChild, IDs: cells}},
	})
	return resp
}

type fakeSecondary struct {
	err    error
	raw    []byte // Overrides the default JSON raw output when set
	format RawFormat
	calls  atomic.Int32
}

func (*fakeSecondary) Name() string { return "fake" }

func (f *fakeSecondary) Recognize(_ context.Context, _ []byte, name string) (*Recognition, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	box := hocr.NewBoundingBox(10, 10, 90, 30)
	doc := &hocr.Document{Pages: []hocr.Page{{
		ID: "page_1", PageNumber: 1, ImageName: name, BBox: hocr.NewBoundingBox(0, 0, 200, 100),
		Blocks: []hocr.Block{{ID: "block_1", BBox: box, Paragraphs: []hocr.Paragraph{{
			ID: "par_1", BBox: box,
			Words: []hocr.Word{{ID: "word_1", Text: "TOPLAM", BBox: box, Confidence: 91}},
		}}}},
	}}}
	if f.raw != nil {
		return &Recognition{Document: doc, Raw: f.raw, RawFormat: f.format}, nil
	}
	return &Recognition{Document: doc, Raw: []byte(`{"text":"TOPLAM"}`), RawFormat: RawJSON}, nil
}

type harness struct {
	bucket    *blob.Bucket
	store     *artifacts.Store
	outcomes  *outcome.Store
	images    *fakeImages
	primary   *fakePrimary
	secondary *fakeSecondary
	proc      *Processor
}

const sheetURL = "https://example.test/1001.jpg"

func newHarness(t *testing.T, rows [][2]string) *harness {
	t.Helper()
	bucket := memblob.OpenBucket(nil)
	h := &harness{
		bucket:    bucket,
		store:     artifacts.New(bucket, nil),
		images:    &fakeImages{data: map[string][]byte{sheetURL: sheetPNG(t)}},
		primary:   &fakePrimary{rows: rows},
		secondary: &fakeSecondary{},
	}
	t.Cleanup(func() { _ = h.store.Close() })

	var err error
	h.outcomes, err = outcome.Open(filepath.Join(t.TempDir(), "outcomes.db"))
	if err != nil {
		t.Fatalf("outcome.Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = h.outcomes.Close() })

	logger := logging.NewNop()
	h.proc, err = NewProcessor(Deps{
		Images:   h.images,
		Primary:  h.primary,
		Store:    h.store,
		Matcher:  tally.NewMatcher(tally.DefaultCandidates(), nil),
		Fallback: NewFallback(h.store, h.secondary, 0, logger),
		Outcomes: h.outcomes,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("NewProcessor returned error: %v", err)
	}
	return h
}

func (h *harness) has(t *testing.T, key string) bool {
	t.Helper()
	for _, a := range artifacts.Bundle {
		if a.VerifiedKey("1001") == key {
			ok, err := h.store.Has(context.Background(), a, "1001")
			if err != nil {
				t.Fatal(err)
			}
			return ok
		}
	}
	t.Fatalf("unknown key %s", key)
	return false
}

var (
	matchingRows = [][2]string{
		{"RECEP TAYYİP ERDOĞAN", "100"},
		{"MUHARREM İNCE", "50"},
		{"TOPLAM", "150"},
	}
	mismatchingRows = [][2]string{
		{"RECEP TAYYİP ERDOĞAN", "100"},
		{"MUHARREM İNCE", "50"},
		{"TOPLAM", "200"},
	}
)

func box(id string) ballot.Record {
	return ballot.Record{ID: id, ImageURL: sheetURL}
}

func TestProcessVerified(t *testing.T) {
	h := newHarness(t, matchingRows)
	ctx := context.Background()

	res, err := h.proc.Process(ctx, box("1001"), "run-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if res.State != outcome.Verified || !res.Reconciliation.Match || res.Reconciliation.Sum != 150 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Fallback != nil || h.secondary.calls.Load() != 0 {
		t.Fatal("fallback must not run for a reconciled box")
	}
	for _, a := range artifacts.Bundle {
		if !h.has(t, a.VerifiedKey("1001")) {
			t.Errorf("%s missing from verified storage", a)
		}
	}

	rec, err := h.outcomes.Get(ctx, "1001")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.State != outcome.Verified || rec.Sum != 150 || rec.RunID != "run-1" || rec.Strategy != "exact" {
		t.Fatalf("unexpected outcome: %+v", rec)
	}
}

func TestProcessMismatchQuarantines(t *testing.T) {
	h := newHarness(t, mismatchingRows)
	ctx := context.Background()

	res, err := h.proc.Process(ctx, box("1001"), "run-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if res.State != outcome.Quarantined || res.Reconciliation.Match {
		t.Fatalf("unexpected result: %+v", res)
	}
	if h.secondary.calls.Load() != 1 {
		t.Fatalf("secondary called %d times, want 1", h.secondary.calls.Load())
	}

	quarantined, err := h.store.Quarantined(ctx, "1001")
	if err != nil || !quarantined {
		t.Fatalf("Quarantined = %v, %v", quarantined, err)
	}
	for _, a := range artifacts.Bundle {
		if h.has(t, a.VerifiedKey("1001")) {
			t.Errorf("%s still in verified storage", a)
		}
	}

	files := append([]string(nil), res.Fallback.ReviewFiles...)
	sort.Strings(files)
	want := []string{ReviewPDF, ReviewRaw, ReviewHOCR, ReviewText}
	sort.Strings(want)
	if fmt.Sprint(files) != fmt.Sprint(want) {
		t.Fatalf("ReviewFiles = %v, want %v", files, want)
	}

	rec, err := h.outcomes.Get(ctx, "1001")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.State != outcome.Quarantined || rec.Reason != "sum 150 does not match declared total 200" {
		t.Fatalf("unexpected outcome: %+v", rec)
	}
}

func TestProcessKeepsRawHOCR(t *testing.T) {
	h := newHarness(t, mismatchingRows)
	raw := []byte(`<div class='ocr_page' id='page_1'><span class='ocrx_word' id='word_1'>TOPLAM</span></div>`)
	h.secondary.raw = raw
	h.secondary.format = RawHOCR
	ctx := context.Background()

	res, err := h.proc.Process(ctx, box("1001"), "run-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	files := append([]string(nil), res.Fallback.ReviewFiles...)
	sort.Strings(files)
	want := []string{ReviewPDF, ReviewRawHOCR, ReviewHOCR, ReviewText}
	sort.Strings(want)
	if fmt.Sprint(files) != fmt.Sprint(want) {
		t.Fatalf("ReviewFiles = %v, want %v", files, want)
	}

	got, err := h.bucket.ReadAll(ctx, artifacts.ReviewKey("1001", ReviewRawHOCR))
	if err != nil {
		t.Fatalf("ReadAll returned error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("raw hOCR = %q, want %q", got, raw)
	}
	if ok, _ := h.bucket.Exists(ctx, artifacts.ReviewKey("1001", ReviewRaw)); ok {
		t.Fatal("hOCR output must not be stored as JSON")
	}
}

func TestProcessSecondaryFailureStillQuarantines(t *testing.T) {
	h := newHarness(t, mismatchingRows)
	h.secondary.err = errors.New("quota exceeded")

	res, err := h.proc.Process(context.Background(), box("1001"), "run-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if res.State != outcome.Quarantined {
		t.Fatalf("State = %s, want quarantined", res.State)
	}
	if res.Fallback.SecondaryErr == nil || len(res.Fallback.ReviewFiles) != 0 {
		t.Fatalf("unexpected fallback report: %+v", res.Fallback)
	}
	if ok, _ := h.store.Quarantined(context.Background(), "1001"); !ok {
		t.Fatal("bundle not quarantined")
	}
}

func TestProcessNoTableQuarantines(t *testing.T) {
	h := newHarness(t, nil)
	h.primary.resp = &textract.Response{Blocks: []textract.Block{
		{ID: "w1", BlockType: textract.BlockTypeWord, Text: "RECEP"},
		{ID: "w2", BlockType: textract.BlockTypeWord, Text: "100"},
		{ID: "w3", BlockType: textract.BlockTypeWord, Text: "TOPLAM"},
	}}
	ctx := context.Background()

	res, err := h.proc.Process(ctx, box("1001"), "run-1")
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !res.NoTable || res.State != outcome.Quarantined || res.Reconciliation.Match {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(res.Reconciliation.Counts) != 0 || res.Reconciliation.DeclaredTotal != nil {
		t.Fatalf("expected an empty tally, got %+v", res.Reconciliation.Tally)
	}
	if h.secondary.calls.Load() != 1 {
		t.Fatalf("secondary called %d times, want 1", h.secondary.calls.Load())
	}

	quarantined, err := h.store.Quarantined(ctx, "1001")
	if err != nil || !quarantined {
		t.Fatalf("Quarantined = %v, %v", quarantined, err)
	}
	for _, a := range artifacts.Bundle {
		if h.has(t, a.VerifiedKey("1001")) {
			t.Errorf("%s still in verified storage", a)
		}
	}

	rec, err := h.outcomes.Get(ctx, "1001")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if rec.State != outcome.Quarantined || rec.Reason != "declared total not found" {
		t.Fatalf("unexpected outcome: %+v", rec)
	}
}

func TestProcessCallsPrimaryOncePerBox(t *testing.T) {
	h := newHarness(t, matchingRows)
	ctx := context.Background()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := h.proc.Process(ctx, box("1001"), "run-1"); err != nil {
				t.Errorf("Process returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := h.proc.Process(ctx, box("1001"), "run-2"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if n := h.primary.calls.Load(); n != 1 {
		t.Fatalf("primary called %d times, want 1", n)
	}
}

func TestProcessResumesQuarantinedBox(t *testing.T) {
	h := newHarness(t, mismatchingRows)
	ctx := context.Background()

	if _, err := h.proc.Process(ctx, box("1001"), "run-1"); err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	res, err := h.proc.Process(ctx, box("1001"), "run-2")
	if err != nil {
		t.Fatalf("second Process returned error: %v", err)
	}
	if res.State != outcome.Quarantined || res.Reconciliation.Sum != 150 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if h.primary.calls.Load() != 1 || h.images.calls.Load() != 1 || h.secondary.calls.Load() != 1 {
		t.Fatalf("providers called again: primary=%d images=%d secondary=%d",
			h.primary.calls.Load(), h.images.calls.Load(), h.secondary.calls.Load())
	}
}

func TestProcessErrors(t *testing.T) {
	tests := []struct {
		name  string
		rec   ballot.Record
		setup func(h *harness)
		kind  string
	}{
		{"missing image reference", ballot.Record{ID: "1001"}, nil, KindMissingImage},
		{"image not found", ballot.Record{ID: "1001", ImageURL: "https://example.test/gone.jpg"}, nil, KindFetchFailed},
		{"malformed response", box("1001"), func(h *harness) {
			h.primary.resp = &textract.Response{Blocks: []textract.Block{{ID: "", BlockType: textract.BlockTypeWord}}}
		}, KindMalformedResponse},
		{"primary timeout", box("1001"), func(h *harness) {
			h.primary.err = context.DeadlineExceeded
		}, KindTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, matchingRows)
			if tt.setup != nil {
				tt.setup(h)
			}
			_, err := h.proc.Process(context.Background(), tt.rec, "run-1")
			if err == nil {
				t.Fatal("expected error")
			}
			if got := ErrorKind(err); got != tt.kind {
				t.Fatalf("ErrorKind = %q, want %q (err: %v)", got, tt.kind, err)
			}
			if ok, _ := h.outcomes.Has(context.Background(), tt.rec.ID); ok {
				t.Fatal("no outcome must be recorded for a failed box")
			}
		})
	}
}

func TestBatchRun(t *testing.T) {
	h := newHarness(t, matchingRows)
	ctx := context.Background()
	records := []ballot.Record{box("1001"), {ID: "1002"}, {ID: "1003", ImageURL: "https://example.test/gone.jpg"}}

	b := NewBatch(h.proc, h.outcomes, BatchOptions{Workers: 2}, logging.NewNop())
	sum, err := b.Run(ctx, records)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sum.RunID == "" {
		t.Fatal("expected a generated run id")
	}
	if sum.Total != 3 || sum.Verified != 1 || sum.Skipped != 2 || sum.Failed != 0 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.ByKind[KindMissingImage] != 1 || sum.ByKind[KindFetchFailed] != 1 {
		t.Fatalf("unexpected skip kinds: %v", sum.ByKind)
	}

	sum, err = b.Run(ctx, records[:1])
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if sum.Skipped != 1 || sum.Verified != 0 {
		t.Fatalf("recorded box was not skipped: %+v", sum)
	}

	forced := NewBatch(h.proc, h.outcomes, BatchOptions{Force: true, RunID: "forced"}, logging.NewNop())
	sum, err = forced.Run(ctx, records[:1])
	if err != nil || sum.Verified != 1 || sum.RunID != "forced" {
		t.Fatalf("forced run: %+v, %v", sum, err)
	}
	if h.primary.calls.Load() != 1 {
		t.Fatalf("primary called %d times, want 1", h.primary.calls.Load())
	}
}

func TestBatchRunCanceled(t *testing.T) {
	h := newHarness(t, matchingRows)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewBatch(h.proc, nil, BatchOptions{}, logging.NewNop()).Run(ctx, []ballot.Record{box("1001")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run error = %v, want context.Canceled", err)
	}
}

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{fmt.Errorf("x: %w", ballot.ErrMissingImageReference), KindMissingImage},
		{&ballot.ImageFetchError{URL: "u", Status: 500}, KindFetchFailed},
		{fmt.Errorf("x: %w", textract.ErrMalformedResponse), KindMalformedResponse},
		{&artifacts.TransferIncompleteError{ID: "1", Missing: []string{"k"}}, KindTransferIncomplete},
		{&artifacts.SourceNotRemovedError{ID: "1", Keys: []string{"k"}, Err: errors.New("denied")}, KindSourceNotRemoved},
		{fmt.Errorf("x: %w", context.DeadlineExceeded), KindTransient},
		{context.Canceled, KindCanceled},
		{errors.New("boom"), KindInternal},
	}
	for _, tt := range tests {
		if got := ErrorKind(tt.err); got != tt.want {
			t.Errorf("ErrorKind(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestSkippable(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{fmt.Errorf("x: %w", ballot.ErrMissingImageReference), true},
		{fmt.Errorf("x: %w", &ballot.ImageFetchError{URL: "u", Status: 404}), true},
		{fmt.Errorf("x: %w", textract.ErrMalformedResponse), false},
		{context.DeadlineExceeded, false},
	}
	for _, tt := range tests {
		if got := skippable(tt.err); got != tt.want {
			t.Errorf("skippable(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestNewProcessorRequiresDeps(t *testing.T) {
	if _, err := NewProcessor(Deps{}); err == nil {
		t.Fatal("expected error")
	}
}
