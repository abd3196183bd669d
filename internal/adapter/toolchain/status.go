package toolchain

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"

	"github.com/quill-lang/quillup/internal/domain"
)

// StatusScanner reads the newline-delimited JSON status lines the
// language server emits during install/check/update operations, in the
// manner of bufio.Scanner. Unparseable lines are logged and skipped
// rather than aborting the stream.
type StatusScanner struct {
	sc     *bufio.Scanner
	logger domain.Logger
	ev     domain.StatusEvent
}

// NewStatusScanner creates a scanner over r.
func NewStatusScanner(r io.Reader, logger domain.Logger) *StatusScanner {
	return &StatusScanner{sc: bufio.NewScanner(r), logger: logger}
}

// Scan advances to the next parseable status event. It returns false at
// end of stream or on a read error.
func (s *StatusScanner) Scan() bool {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" {
			continue
		}
		var ev domain.StatusEvent
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			s.logger.Warn("unparseable status line from language server", "line", line)
			continue
		}
		s.ev = ev
		return true
	}
	return false
}

// Event returns the event produced by the last successful Scan.
func (s *StatusScanner) Event() domain.StatusEvent { return s.ev }

// Err returns the first read error encountered, if any.
func (s *StatusScanner) Err() error { return s.sc.Err() }
