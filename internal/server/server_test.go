package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/transcript-reader/constants"
	"github.com/joseph-ayodele/transcript-reader/internal/async"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/entity"
	"github.com/joseph-ayodele/transcript-reader/internal/export"
	"github.com/joseph-ayodele/transcript-reader/internal/pipeline"
	"github.com/joseph-ayodele/transcript-reader/internal/repository"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
	"github.com/joseph-ayodele/transcript-reader/internal/utils"
)

type stubProcessor struct {
	mu    sync.Mutex
	calls []string
	fail  map[string]bool
}

func (p *stubProcessor) result(path string) (*pipeline.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, path)
	if p.fail[filepath.Base(path)] {
		return nil, errors.New("ocr exploded")
	}
	return &pipeline.Result{TranscriptID: uuid.New(), SourcePath: path, Record: transcript.TranscriptRecord{Subjects: []transcript.SubjectRecord{}}}, nil
}

func (p *stubProcessor) ProcessFile(_ context.Context, path string) (*pipeline.Result, error) {
	return p.result(path)
}

func (p *stubProcessor) Process(_ context.Context, sourcePath string, _ []byte) (*pipeline.Result, error) {
	return p.result(sourcePath)
}

type stubQueue struct {
	mu   sync.Mutex
	jobs []async.Job
}

func (q *stubQueue) Enqueue(_ context.Context, job async.Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *stubQueue) Shutdown(context.Context) {}

type harness struct {
	client *Client
	conn   *grpc.ClientConn
	repo   repository.TranscriptRepository
	proc   *stubProcessor
	queue  *stubQueue
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	db, err := ConnectDB(ctx, common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", DialTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("ConnectDB: %v", err)
	}
	t.Cleanup(db.Close)

	parser, err := transcript.NewParser(transcript.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("NewParser: %v", err)
	}
	h := &harness{
		repo:  repository.NewTranscriptRepository(db, nil),
		proc:  &stubProcessor{fail: map[string]bool{}},
		queue: &stubQueue{},
	}
	svc := NewTranscriptService(Deps{
		Parser:      parser,
		Processor:   h.proc,
		Queue:       h.queue,
		Transcripts: h.repo,
		Export:      export.NewService(h.repo, nil),
	}, nil)

	lis := bufconn.Listen(1 << 20)
	srv, _ := NewGRPCServer(svc, nil)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	h.client = NewClient(conn)
	return h
}

func (h *harness) call(t *testing.T, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("NewStruct: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return h.client.Call(ctx, method, req)
}

func wantCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	if got := status.Code(err); got != code {
		t.Fatalf("status = %v (%v), want %v", got, err, code)
	}
}

func fragmentList(texts ...string) []any {
	out := make([]any, len(texts))
	for i, s := range texts {
		out[i] = map[string]any{"text": s, "confidence": 0.9}
	}
	return out
}

func TestParseFragments(t *testing.T) {
	h := newHarness(t)
	resp, err := h.call(t, "ParseFragments", map[string]any{
		"fragments": fragmentList("Họ và tên: Nguyen Van A", "Lớp: 12A3", "Toán học", "8.5", "9,0", "90", "Vật 1í", "7", "Đ"),
		"trace":     true,
	})
	if err != nil {
		t.Fatalf("ParseFragments: %v", err)
	}
	var got parseResponse
	if err := utils.FromStruct(resp, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	name := "Nguyen Van A"
	class, _ := transcript.ParseClassCode("12A3")
	s85, s90, s70 := transcript.NumericScore(85), transcript.NumericScore(90), transcript.NumericScore(70)
	want := transcript.TranscriptRecord{
		StudentName: &name,
		ClassCode:   &class,
		Subjects:    []transcript.SubjectRecord{
			{Subject: transcript.SubjectName{Subject: constants.Math}, Term1: &s85, Term2: &s90, Final: &s90},
			{Subject: transcript.SubjectName{Subject: constants.Physics}, Term1: &s70},
		},
	}
	if diff := cmp.Diff(want, got.Record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if got.NeedsReview {
		t.Error("complete record should not need review")
	}
	if len(got.Trace) == 0 {
		t.Error("trace requested but empty")
	}
}

func TestParseFragmentsRejectsBadPayload(t *testing.T) {
	h := newHarness(t)
	_, err := h.call(t, "ParseFragments", map[string]any{"fragments": "not a list"})
	wantCode(t, err, codes.InvalidArgument)
}

func TestProcessFile(t *testing.T) {
	h := newHarness(t)

	resp, err := h.call(t, "ProcessFile", map[string]any{"path": "/data/a.jpg"})
	if err != nil {
		t.Fatalf("ProcessFile: %v", err)
	}
	m := resp.AsMap()
	if m["status"] != "PARSED" || m["source_path"] != "/data/a.jpg" {
		t.Errorf("unexpected response %v", m)
	}

	img := base64.StdEncoding.EncodeToString([]byte("fake"))
	resp, err = h.call(t, "ProcessFile", map[string]any{"image_base64": img, "filename": "upload.png"})
	if err != nil {
		t.Fatalf("ProcessFile(upload): %v", err)
	}
	if resp.AsMap()["source_path"] != "upload.png" {
		t.Errorf("upload source_path = %v", resp.AsMap()["source_path"])
	}

	resp, err = h.call(t, "ProcessFile", map[string]any{"path": "/data/b.jpg", "async": true})
	if err != nil {
		t.Fatalf("ProcessFile(async): %v", err)
	}
	if resp.AsMap()["status"] != "QUEUED" {
		t.Errorf("async status = %v", resp.AsMap()["status"])
	}
	if len(h.queue.jobs) != 1 || h.queue.jobs[0].Path != "/data/b.jpg" || h.queue.jobs[0].RequestID == "" {
		t.Errorf("queued jobs = %+v", h.queue.jobs)
	}
	if diff := cmp.Diff([]string{"/data/a.jpg", "upload.png"}, h.proc.calls); diff != "" {
		t.Errorf("processor calls (-want +got):\n%s", diff)
	}
}

func TestProcessFileValidation(t *testing.T) {
	h := newHarness(t)
	for name, in := range map[string]map[string]any{
		"empty":        {},
		"both":         {"path": "/a.jpg", "image_base64": "eA=="},
		"async upload": {"image_base64": "eA==", "filename": "a.png", "async": true},
		"no filename":  {"image_base64": "eA=="},
		"bad base64":   {"image_base64": "***", "filename": "a.png"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := h.call(t, "ProcessFile", in)
			wantCode(t, err, codes.InvalidArgument)
		})
	}
}

func TestProcessFileMapsPipelineErrors(t *testing.T) {
	h := newHarness(t)
	h.proc.fail["broken.jpg"] = true
	_, err := h.call(t, "ProcessFile", map[string]any{"path": "/data/broken.jpg"})
	wantCode(t, err, codes.Internal)
}

func TestProcessDirectory(t *testing.T) {
	h := newHarness(t)
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.png", "notes.txt", ".hidden.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	h.proc.fail["b.png"] = true

	resp, err := h.call(t, "ProcessDirectory", map[string]any{"root": dir})
	if err != nil {
		t.Fatalf("ProcessDirectory: %v", err)
	}
	var got processDirectoryResponse
	if err := utils.FromStruct(resp, &got); err != nil {
		t.Fatal(err)
	}
	if got.Matched != 2 || got.Succeeded != 1 || got.Failed != 1 || len(got.Results) != 2 {
		t.Fatalf("unexpected summary %+v", got)
	}
	statuses := map[string]string{}
	for _, r := range got.Results {
		statuses[filepath.Base(r.Path)] = r.Status
	}
	if diff := cmp.Diff(map[string]string{"a.jpg": "PARSED", "b.png": "FAILED"}, statuses); diff != "" {
		t.Errorf("statuses (-want +got):\n%s", diff)
	}

	resp, err = h.call(t, "ProcessDirectory", map[string]any{"root": dir, "async": true, "skip_hidden": false})
	if err != nil {
		t.Fatalf("ProcessDirectory(async): %v", err)
	}
	if n := resp.AsMap()["succeeded"]; n != 3.0 {
		t.Errorf("queued = %v, want 3 including the hidden file", n)
	}

	_, err = h.call(t, "ProcessDirectory", map[string]any{})
	wantCode(t, err, codes.InvalidArgument)
}

func saveTranscript(t *testing.T, repo repository.TranscriptRepository, path string, review bool) *entity.Transcript {
	t.Helper()
	name := "Tran Thi B"
	s := transcript.NumericScore(75)
	out, err := repo.Save(context.Background(), &entity.Transcript{
		SourcePath:  path,
		ContentHash: "hash-" + path,
		NeedsReview: review,
		Record:      transcript.TranscriptRecord{
			StudentName: &name,
			Subjects:    []transcript.SubjectRecord{{Subject: transcript.SubjectName{Subject: constants.History}, Term1: &s}},
		},
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	return out
}

func TestGetAndListTranscripts(t *testing.T) {
	h := newHarness(t)
	first := saveTranscript(t, h.repo, "/in/1.jpg", false)
	saveTranscript(t, h.repo, "/in/2.jpg", true)

	resp, err := h.call(t, "GetTranscript", map[string]any{"id": first.ID.String()})
	if err != nil {
		t.Fatalf("GetTranscript: %v", err)
	}
	var got entity.Transcript
	if err := utils.FromStruct(resp, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != first.ID || got.SourcePath != "/in/1.jpg" || *got.Record.StudentName != "Tran Thi B" {
		t.Errorf("GetTranscript = %+v", got)
	}

	_, err = h.call(t, "GetTranscript", map[string]any{"id": uuid.NewString()})
	wantCode(t, err, codes.NotFound)
	_, err = h.call(t, "GetTranscript", map[string]any{"id": "nope"})
	wantCode(t, err, codes.InvalidArgument)

	resp, err = h.call(t, "ListTranscripts", map[string]any{})
	if err != nil {
		t.Fatalf("ListTranscripts: %v", err)
	}
	if n := len(resp.AsMap()["transcripts"].([]any)); n != 2 {
		t.Errorf("listed %d transcripts, want 2", n)
	}

	resp, err = h.call(t, "ListTranscripts", map[string]any{"needs_review": true})
	if err != nil {
		t.Fatalf("ListTranscripts(review): %v", err)
	}
	items := resp.AsMap()["transcripts"].([]any)
	if len(items) != 1 || items[0].(map[string]any)["source_path"] != "/in/2.jpg" {
		t.Errorf("review filter returned %v", items)
	}

	_, err = h.call(t, "ListTranscripts", map[string]any{"limit": -1})
	wantCode(t, err, codes.InvalidArgument)
}

func TestExportTranscripts(t *testing.T) {
	h := newHarness(t)
	saveTranscript(t, h.repo, "/in/1.jpg", false)

	resp, err := h.call(t, "ExportTranscripts", map[string]any{})
	if err != nil {
		t.Fatalf("ExportTranscripts: %v", err)
	}
	data, err := base64.StdEncoding.DecodeString(resp.AsMap()["xlsx"].(string))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Error("xlsx payload is not a zip archive")
	}
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(h.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %v", resp.GetStatus())
	}
}

func TestUnavailableWithoutDependencies(t *testing.T) {
	svc := NewTranscriptService(Deps{}, nil)
	in, _ := structpb.NewStruct(map[string]any{"path": "/a.jpg"})
	_, err := svc.ProcessFile(context.Background(), in)
	if !errors.Is(err, common.ErrUnavailable) {
		t.Fatalf("want ErrUnavailable, got %v", err)
	}
	wantCode(t, common.ToStatus(err), codes.Unavailable)
}
