package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joseph-ayodele/transcript-reader/internal/common"
	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// CLIEngine shells out to the tesseract binary and reads its TSV output.
type CLIEngine struct {
	Bin    string // defaults to "tesseract"
	Runner Runner
	Logger *slog.Logger
}

// tesseract spawns an OpenMP team per process; with several queue workers
// that oversubscribes the CPU.
var cliEnv = []string{"OMP_THREAD_LIMIT=1"}

// NewCLIEngine returns a CLIEngine running bin through an ExecRunner.
func NewCLIEngine(bin string, logger *slog.Logger) *CLIEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &CLIEngine{Bin: bin, Runner: ExecRunner{Logger: logger, Env: cliEnv}, Logger: logger}
}

func (e *CLIEngine) Name() string { return "tesseract-cli" }

func (e *CLIEngine) Recognize(ctx context.Context, image []byte, opt Options) ([]transcript.Fragment, error) {
	if len(image) == 0 {
		return nil, common.NewAppError(common.CodeOCR, "empty image", common.ErrInvalidInput)
	}
	tmpDir, err := os.MkdirTemp("", "tr-ocr-*")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	path := filepath.Join(tmpDir, "page")
	if err := os.WriteFile(path, image, 0o600); err != nil {
		return nil, err
	}

	bin := e.Bin
	if bin == "" {
		bin = "tesseract"
	}
	runner := e.Runner
	if runner == nil {
		runner = ExecRunner{Logger: e.Logger, Env: cliEnv}
	}
	stdout, stderr, err := runner.Run(ctx, bin, tesseractArgs(path, opt)...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, common.NewAppError(common.CodeOCR,
			fmt.Sprintf("tesseract failed: %s", truncate(string(stderr), 512)), err)
	}
	frags, err := ParseTSV(stdout)
	if err != nil {
		return nil, common.NewAppError(common.CodeOCR, "parse tesseract tsv", err)
	}
	return frags, nil
}

func tesseractArgs(path string, opt Options) []string {
	lang := opt.Language
	if lang == "" {
		lang = "vie+eng"
	}
	args := []string{path, "stdout", "-l", lang}
	if opt.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(opt.PSM))
	}
	if opt.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(opt.OEM))
	}
	if opt.TessdataDir != "" {
		args = append(args, "--tessdata-dir", opt.TessdataDir)
	}
	return append(args, "tsv")
}
