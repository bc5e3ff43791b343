package cli

import (
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"relnotes/internal/config"
	"relnotes/internal/logger"
)

// progress shows the current pipeline phase on a terminal spinner.
// A disabled progress ignores every call.
type progress struct {
	s *spinner.Spinner
}

func newProgress(w io.Writer, enabled bool) *progress {
	if !enabled {
		return &progress{}
	}

	return &progress{
		s: spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w)),
	}
}

// Update shows phase next to the spinner, starting it on first use.
func (p *progress) Update(phase string) {
	if p.s == nil {
		return
	}

	p.s.Lock()
	p.s.Suffix = " " + phase
	p.s.Unlock()

	if !p.s.Active() {
		p.s.Start()
	}
}

// Stop clears the spinner. It is safe to call more than once.
func (p *progress) Stop() {
	if p.s != nil && p.s.Active() {
		p.s.Stop()
	}
}

// spinnerEnabled reports whether a spinner can run without interleaving with
// log output: stderr must be a terminal and info logs must be off.
func spinnerEnabled(cmd *cobra.Command, cfg *config.Config) bool {
	f, ok := cmd.ErrOrStderr().(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return false
	}

	return logger.ParseLevel(cfg.Logging.Level) > logger.ParseLevel("info")
}
