package ocr

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/transcript-reader/internal/transcript"
)

// table rules OCR'd as runs of underscores or dashes
var reBoxNoise = regexp.MustCompile(`^[\s_\-=|.]{3,}$`)

type lineKey struct {
	page, block, par, line int
}

// ParseTSV groups tesseract TSV word rows into line fragments. A line's
// confidence is the mean of its word confidences scaled to [0, 1]. Lines
// keep the order tesseract emitted them in.
func ParseTSV(data []byte) ([]transcript.Fragment, error) {
	type acc struct {
		words []string
		conf  float64
		n     int
	}
	var (
		order []lineKey
		lines = make(map[lineKey]*acc)
	)

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 64<<10), 4<<20)
	header := true
	for sc.Scan() {
		ln := strings.TrimRight(sc.Text(), "\r")
		if header {
			header = false
			if strings.HasPrefix(ln, "level") {
				continue
			}
		}
		if ln == "" {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		if level, _ := strconv.Atoi(cols[0]); level != 5 {
			continue // only word rows carry text
		}
		text := strings.TrimSpace(cols[11])
		conf, err := strconv.ParseFloat(cols[10], 64)
		if err != nil || conf < 0 || text == "" {
			continue
		}
		key := lineKey{atoi(cols[1]), atoi(cols[2]), atoi(cols[3]), atoi(cols[4])}
		a, ok := lines[key]
		if !ok {
			a = &acc{}
			lines[key] = a
			order = append(order, key)
		}
		a.words = append(a.words, text)
		a.conf += conf
		a.n++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read tsv: %w", err)
	}

	out := make([]transcript.Fragment, 0, len(order))
	for _, k := range order {
		a := lines[k]
		text := strings.Join(a.words, " ")
		if reBoxNoise.MatchString(text) {
			continue
		}
		out = append(out, transcript.Fragment{Text: text, Confidence: clamp01(a.conf / float64(a.n) / 100)})
	}
	return out, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func clamp01(f float64) float64 {
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}
