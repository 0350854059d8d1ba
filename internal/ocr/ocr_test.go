package ocr

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t1000\t1400\t-1\t\n" +
	"4\t1\t1\t1\t1\t0\t10\t10\t300\t20\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t40\t20\t90\tHọ\n" +
	"5\t1\t1\t1\t1\t2\t60\t10\t40\t20\t80\ttên:\n" +
	"5\t1\t1\t1\t1\t3\t110\t10\t40\t20\t70\tNguyễn\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t40\t20\t95\tToán\n" +
	"5\t1\t1\t1\t2\t2\t60\t40\t40\t20\t-1\t \n" +
	"5\t1\t1\t1\t2\t3\t110\t40\t40\t20\t85\t8.5\n" +
	"5\t1\t2\t1\t1\t1\t10\t80\t300\t5\t30\t______\n"

func TestParseTSV(t *testing.T) {
	got, err := ParseTSV([]byte(sampleTSV))
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	want := []transcript.Fragment{
		{Text: "Họ tên: Nguyễn", Confidence: 0.8},
		{Text: "Toán 8.5", Confidence: 0.9},
	}
	opt := cmp.Comparer(func(a, b float64) bool { d := a - b; return d < 1e-9 && d > -1e-9 })
	if diff := cmp.Diff(want, got, opt); diff != "" {
		t.Errorf("fragments mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTSVEmpty(t *testing.T) {
	got, err := ParseTSV(nil)
	if err != nil {
		t.Fatalf("ParseTSV: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d fragments, want 0", len(got))
	}
}

func TestTesseractArgs(t *testing.T) {
	got := tesseractArgs("/tmp/p", Options{PSM: 6, OEM: 1, TessdataDir: "/td"})
	want := []string{"/tmp/p", "stdout", "-l", "vie+eng", "--psm", "6", "--oem", "1", "--tessdata-dir", "/td", "tsv"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

type stubRunner struct {
	calls  [][]string
	stdout []byte
	stderr []byte
	err    error
	// write copies this payload into the last argument, like a converter would
	write []byte
}

func (s *stubRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.calls = append(s.calls, append([]string{name}, args...))
	if s.write != nil && len(args) > 0 {
		if err := os.WriteFile(args[len(args)-1], s.write, 0o600); err != nil {
			return nil, nil, err
		}
	}
	return s.stdout, s.stderr, s.err
}

func TestCLIEngineRecognize(t *testing.T) {
	r := &stubRunner{stdout: []byte(sampleTSV)}
	e := &CLIEngine{Bin: "tess", Runner: r}
	frags, err := e.Recognize(context.Background(), []byte{1, 2, 3}, Options{Language: "vie", PSM: 4})
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("got %d fragments, want 2", len(frags))
	}
	if len(r.calls) != 1 {
		t.Fatalf("runner called %d times", len(r.calls))
	}
	call := r.calls[0]
	if call[0] != "tess" || call[3] != "-l" || call[4] != "vie" || call[len(call)-1] != "tsv" {
		t.Errorf("unexpected invocation %v", call)
	}
}

func TestCLIEngineFailure(t *testing.T) {
	r := &stubRunner{stderr: []byte("Error opening data file"), err: errors.New("exit status 1")}
	e := &CLIEngine{Runner: r}
	_, err := e.Recognize(context.Background(), []byte{1}, Options{})
	if !common.HasCode(err, common.CodeOCR) {
		t.Fatalf("want OCR_ERROR, got %v", err)
	}
	if !strings.Contains(err.Error(), "Error opening data file") {
		t.Errorf("stderr missing from %q", err)
	}
}

func TestCLIEngineEmptyImage(t *testing.T) {
	_, err := (&CLIEngine{Runner: &stubRunner{}}).Recognize(context.Background(), nil, Options{})
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestHEICConverterCaches(t *testing.T) {
	dir := t.TempDir()
	r := &stubRunner{write: []byte("png-bytes")}
	c := HEICConverter{Converter: "magick", CacheDir: dir, Runner: r}
	ctx := WithContentHash(context.Background(), "abc123")

	got, err := c.ToPNG(ctx, []byte("heic"))
	if err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	if string(got) != "png-bytes" {
		t.Errorf("got %q", got)
	}
	got, err = c.ToPNG(ctx, []byte("heic"))
	if err != nil {
		t.Fatalf("ToPNG (cached): %v", err)
	}
	if string(got) != "png-bytes" {
		t.Errorf("cached got %q", got)
	}
	if len(r.calls) != 1 {
		t.Errorf("converter ran %d times, want 1", len(r.calls))
	}
}

func TestHEICConverterSipsArgs(t *testing.T) {
	r := &stubRunner{write: []byte("x")}
	c := HEICConverter{Converter: "sips", Runner: r}
	if _, err := c.ToPNG(context.Background(), []byte("heic")); err != nil {
		t.Fatalf("ToPNG: %v", err)
	}
	call := r.calls[0]
	if call[0] != "sips" || call[1] != "-s" || call[len(call)-2] != "--out" {
		t.Errorf("unexpected invocation %v", call)
	}
}

func TestHEICConverterUnknown(t *testing.T) {
	c := HEICConverter{Converter: "", Runner: &stubRunner{}}
	_, err := c.ToPNG(context.Background(), []byte("heic"))
	if !errors.Is(err, common.ErrUnsupported) {
		t.Fatalf("want ErrUnsupported, got %v", err)
	}
}

func TestMeanConfidence(t *testing.T) {
	if got := MeanConfidence(nil); got != 0 {
		t.Errorf("empty: got %v", got)
	}
	got := MeanConfidence([]transcript.Fragment{{Confidence: 0.5}, {Confidence: 1}})
	if got != 0.75 {
		t.Errorf("got %v, want 0.75", got)
	}
}

func TestExecRunnerEnvAndJobID(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := common.WithJobID(context.Background(), "job-7")
	r := ExecRunner{Env: cliEnv}
	stdout, _, err := r.Run(ctx, "sh", "-c", "echo $OMP_THREAD_LIMIT")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(string(stdout)); got != "1" {
		t.Errorf("OMP_THREAD_LIMIT = %q, want 1", got)
	}

	_, stderr, err := r.Run(ctx, "sh", "-c", "echo boom >&2; exit 3")
	if err == nil {
		t.Fatal("expected exit error")
	}
	if strings.TrimSpace(string(stderr)) != "boom" {
		t.Errorf("stderr = %q", stderr)
	}
}
