package progress

import (
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v6"
	"github.com/vbauerster/mpb/v6/decor"
)

// mu makes sure that only one progress bar is running at a time this is necessary because
// multiple bars running at the same time leads to weird terminal output.
var mu sync.Mutex

// Writer is an io.Writer that advances a progress bar as it is written to.  A Writer made by
// NewWriter when stderr is not a terminal writes through without drawing anything.
type Writer struct {
	io.Writer
	p   *mpb.Progress
	bar *mpb.Bar
}

// IsTerminal reports whether stderr is a terminal.
func IsTerminal() bool {
	return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
}

// NewWriter wraps w with a bar named name expecting total bytes, drawn on stderr if it is a
// terminal.
func NewWriter(w io.Writer, name string, total int64) *Writer {
	if !IsTerminal() {
		return &Writer{Writer: w}
	}
	return NewWriterTo(os.Stderr, w, name, total)
}

// NewWriterTo is NewWriter drawing the bar on out.
func NewWriterTo(out io.Writer, w io.Writer, name string, total int64) *Writer {
	mu.Lock()
	p := mpb.New(mpb.WithOutput(out), mpb.WithWidth(40))
	bar := p.AddBar(total,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DidentRight}),
			decor.CountersKibiByte("% .1f / % .1f"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.Name(" "),
			decor.AverageSpeed(decor.UnitKiB, "% .1f"),
		),
	)
	return &Writer{Writer: w, p: p, bar: bar}
}

// Write writes to the wrapped writer and advances the bar.
func (w *Writer) Write(b []byte) (int, error) {
	n, err := w.Writer.Write(b)
	if w.bar != nil {
		w.bar.IncrBy(n)
	}
	return n, err
}

// Finish completes the bar and waits for it to be drawn.  It does not close the wrapped writer.
func (w *Writer) Finish() {
	if w.bar == nil {
		return
	}
	w.bar.SetTotal(w.bar.Current(), true)
	w.p.Wait()
	w.bar = nil
	mu.Unlock()
}

// Abort removes the bar without completing it.
func (w *Writer) Abort() {
	if w.bar == nil {
		return
	}
	w.bar.Abort(true)
	w.p.Wait()
	w.bar = nil
	mu.Unlock()
}
