package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/picup/picup/internal/api"
	"github.com/picup/picup/internal/category"
	"github.com/picup/picup/internal/store"
)

const (
	testToken  = "baka"
	testPrefix = "http://127.0.0.1:19190"
)

type sliceSource struct {
	parts []*Part
	next  int
}

func (s *sliceSource) Next() (*Part, error) {
	if s.next >= len(s.parts) {
		return nil, io.EOF
	}
	p := s.parts[s.next]
	s.next++
	return p, nil
}

func imagePart(name, data string) *Part {
	return &Part{Filename: name, ContentType: "image/png", Body: strings.NewReader(data)}
}

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	st := store.New(slog.Default(), t.TempDir())
	if err := st.Init([]string{"pics", "docs"}); err != nil {
		t.Fatalf("store init: %v", err)
	}
	table := category.NewTable(map[string]category.Policy{
		"pics": {AllowAllFiles: false},
		"docs": {AllowAllFiles: true},
	})
	return NewService(slog.Default(), testToken, table, st, testPrefix), st
}

func validRequest() Request {
	return Request{Token: testToken, Category: "pics"}
}

func wantFailure(t *testing.T, err error, code api.ResponseCode) *Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected failure with code %d, got success", code)
	}
	var ue *Error
	if !errors.As(err, &ue) {
		t.Fatalf("error type = %T, want *upload.Error", err)
	}
	if ue.Code != code {
		t.Fatalf("failure code = %d (%s), want %d", ue.Code, ue.Message, code)
	}
	return ue
}

func assetBytes(t *testing.T, st *store.Store, categoryName, name string) string {
	t.Helper()
	rc, err := st.Open(categoryName, name)
	if err != nil {
		t.Fatalf("Open(%s/%s): %v", categoryName, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read asset: %v", err)
	}
	return string(data)
}

func TestProcessRoundTrip(t *testing.T) {
	s, st := newTestService(t)

	urls, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("a.png", "aaa"),
		imagePart("b.png", "bbb"),
	}})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}

	want := []string{
		testPrefix + "/asset/pics/a.png",
		testPrefix + "/asset/pics/b.png",
	}
	if len(urls) != len(want) {
		t.Fatalf("urls = %v, want %v", urls, want)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("urls[%d] = %q, want %q", i, urls[i], want[i])
		}
	}
	if got := assetBytes(t, st, "pics", "a.png"); got != "aaa" {
		t.Fatalf("a.png bytes = %q", got)
	}
	if got := assetBytes(t, st, "pics", "b.png"); got != "bbb" {
		t.Fatalf("b.png bytes = %q", got)
	}
}

func TestProcessPercentEncodesURLs(t *testing.T) {
	s, _ := newTestService(t)

	urls, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("my pic.png", "x"),
	}})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if want := testPrefix + "/asset/pics/my%20pic.png"; urls[0] != want {
		t.Fatalf("url = %q, want %q", urls[0], want)
	}
}

func TestProcessEmptyBatch(t *testing.T) {
	s, _ := newTestService(t)

	urls, err := s.Process(context.Background(), validRequest(), &sliceSource{})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if urls == nil || len(urls) != 0 {
		t.Fatalf("urls = %#v, want empty non-nil slice", urls)
	}
}

func TestTokenGateRunsFirst(t *testing.T) {
	s, _ := newTestService(t)

	// Wrong token outranks the invalid category, the reserved compress
	// value, and the nameless part.
	req := Request{Token: "wrong", Category: "no-such", Compress: 9, Override: true}
	_, err := s.Process(context.Background(), req, &sliceSource{parts: []*Part{
		{Filename: "", ContentType: "text/plain", Body: strings.NewReader("x")},
	}})
	wantFailure(t, err, api.CodeInvalidToken)
}

func TestInvalidCategory(t *testing.T) {
	s, _ := newTestService(t)

	req := validRequest()
	req.Category = "no-such"
	_, err := s.Process(context.Background(), req, &sliceSource{})
	wantFailure(t, err, api.CodeInvalidCategory)
}

func TestCompressReserved(t *testing.T) {
	s, _ := newTestService(t)

	req := validRequest()
	req.Compress = 1
	_, err := s.Process(context.Background(), req, &sliceSource{})
	ue := wantFailure(t, err, api.CodeNotImplemented)
	if !strings.Contains(ue.Message, "compress") {
		t.Fatalf("message = %q, want mention of compress", ue.Message)
	}
}

func TestBadFileNameReportsOneBasedIndex(t *testing.T) {
	s, st := newTestService(t)

	_, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("a.png", "aaa"),
		{Filename: "", ContentType: "image/png", Body: strings.NewReader("bbb")},
		imagePart("c.png", "ccc"),
	}})
	ue := wantFailure(t, err, api.CodeBadFileName)
	if want := "invalid file name, file no: 2"; ue.Message != want {
		t.Fatalf("message = %q, want %q", ue.Message, want)
	}

	// All-or-nothing: the already-staged first part must not be committed.
	if exists, _ := st.Exists("pics", "a.png"); exists {
		t.Fatalf("a.png committed despite batch failure")
	}
}

func TestContentPolicy(t *testing.T) {
	s, st := newTestService(t)

	textPart := func() *Part {
		return &Part{Filename: "notes.txt", ContentType: "text/plain", Body: strings.NewReader("hi")}
	}

	req := validRequest()
	_, err := s.Process(context.Background(), req, &sliceSource{parts: []*Part{textPart()}})
	ue := wantFailure(t, err, api.CodeNotAnImage)
	if want := "not a image: notes.txt"; ue.Message != want {
		t.Fatalf("message = %q, want %q", ue.Message, want)
	}

	// The same part is accepted by a category that allows any content.
	req.Category = "docs"
	if _, err := s.Process(context.Background(), req, &sliceSource{parts: []*Part{textPart()}}); err != nil {
		t.Fatalf("docs upload returned error: %v", err)
	}
	if got := assetBytes(t, st, "docs", "notes.txt"); got != "hi" {
		t.Fatalf("notes.txt bytes = %q", got)
	}
}

func TestCollisionWithoutOverride(t *testing.T) {
	s, st := newTestService(t)

	if _, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("cat.png", "old"),
	}}); err != nil {
		t.Fatalf("first upload returned error: %v", err)
	}

	_, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("cat.png", "new"),
	}})
	ue := wantFailure(t, err, api.CodeFileExisted)
	if !strings.Contains(ue.Message, "cat.png") {
		t.Fatalf("message = %q, want mention of cat.png", ue.Message)
	}
	if got := assetBytes(t, st, "pics", "cat.png"); got != "old" {
		t.Fatalf("original bytes changed: %q", got)
	}
}

func TestCollisionWithOverride(t *testing.T) {
	s, st := newTestService(t)

	if _, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("cat.png", "old"),
	}}); err != nil {
		t.Fatalf("first upload returned error: %v", err)
	}

	req := validRequest()
	req.Override = true
	if _, err := s.Process(context.Background(), req, &sliceSource{parts: []*Part{
		imagePart("cat.png", "new"),
	}}); err != nil {
		t.Fatalf("override upload returned error: %v", err)
	}
	if got := assetBytes(t, st, "pics", "cat.png"); got != "new" {
		t.Fatalf("asset bytes = %q, want %q", got, "new")
	}
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}

func TestClientReadFailure(t *testing.T) {
	s, st := newTestService(t)

	_, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("a.png", "aaa"),
		{Filename: "b.png", ContentType: "image/png", Body: failingBody{}},
	}})
	ue := wantFailure(t, err, api.CodeBadFile)
	if want := "bad file: b.png"; ue.Message != want {
		t.Fatalf("message = %q, want %q", ue.Message, want)
	}
	if exists, _ := st.Exists("pics", "a.png"); exists {
		t.Fatalf("a.png committed despite batch failure")
	}
}

func TestCanceledRequestCommitsNothing(t *testing.T) {
	s, st := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Process(ctx, validRequest(), &sliceSource{parts: []*Part{
		imagePart("a.png", "aaa"),
	}})
	wantFailure(t, err, api.CodeBadFile)
	if exists, _ := st.Exists("pics", "a.png"); exists {
		t.Fatalf("a.png committed despite canceled request")
	}
}

func TestDuplicateNameInBatch(t *testing.T) {
	s, st := newTestService(t)

	urls, err := s.Process(context.Background(), validRequest(), &sliceSource{parts: []*Part{
		imagePart("cat.png", "first"),
		imagePart("cat.png", "second"),
	}})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(urls) != 2 || urls[0] != urls[1] {
		t.Fatalf("urls = %v, want the same URL twice", urls)
	}
	if got := assetBytes(t, st, "pics", "cat.png"); got != "second" {
		t.Fatalf("asset bytes = %q, want last staged bytes", got)
	}
}
