package vision

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"golang.org/x/image/draw"
)

var (
	matchColor   = color.RGBA{0, 255, 0, 255}
	noMatchColor = color.RGBA{255, 0, 0, 255}
)

// Visualize renders the reference and the live frame of ev side by side in
// grayscale with a line for each accepted pair. Lines are green on success and
// red otherwise. It returns nil when ev names no usable reference.
func (l *Localizer) Visualize(ev *Evidence) *image.RGBA {
	if ev == nil || ev.Ref < 0 || ev.Ref >= len(l.refs) || l.refs[ev.Ref].Gray == nil {
		return nil
	}
	ref := l.refs[ev.Ref]
	lf := ev.Live
	rw, rh := ref.Gray.Rect.Dx(), ref.Gray.Rect.Dy()
	lw, lh := 0, 0
	if lf != nil && lf.Gray != nil {
		lw, lh = lf.Gray.Rect.Dx(), lf.Gray.Rect.Dy()
	}

	canvas := image.NewRGBA(image.Rect(0, 0, rw+lw, max(rh, lh)))
	draw.Draw(canvas, image.Rect(0, 0, rw, rh), ref.Gray, image.Point{}, draw.Src)
	if lw > 0 {
		draw.Draw(canvas, image.Rect(rw, 0, rw+lw, lh), lf.Gray, image.Point{}, draw.Src)
	}

	c := noMatchColor
	if ev.Result.Success {
		c = matchColor
	}
	for _, m := range ev.Pairs {
		a := ref.Keypoints[m.RefIdx]
		b := lf.Keypoints[m.LiveIdx]
		drawLine(canvas, a.X, a.Y, b.X+rw, b.Y, c)
	}
	return canvas
}

// drawLine plots a Bresenham line clipped to the canvas.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.RGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		if image.Pt(x0, y0).In(img.Rect) {
			img.SetRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

type diagnostic struct {
	seq int64
	ev  *Evidence
}

// DiagnosticWriter saves match visualizations as PNG files in Dir. Rendering
// and file I/O happen on a single writer goroutine fed by a buffered channel;
// when the buffer is full evidence is dropped and counted.
type DiagnosticWriter struct {
	Dir       string
	Localizer *Localizer

	ch        chan diagnostic
	wg        sync.WaitGroup
	seq       int64
	written   atomic.Int64
	dropped   atomic.Int64
	closeOnce sync.Once
}

// NewDiagnosticWriter starts a writer with room for buffer pending images.
// It returns nil when dir is empty, which disables diagnostics.
func NewDiagnosticWriter(dir string, l *Localizer, buffer int) (*DiagnosticWriter, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create diagnostics dir: %w", err)
	}
	if buffer < 1 {
		buffer = 1
	}
	w := &DiagnosticWriter{Dir: dir, Localizer: l, ch: make(chan diagnostic, buffer)}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

// Submit queues ev for rendering without blocking. It is a no-op on a nil
// writer or nil evidence, must be called from a single goroutine, and never after Close.
func (w *DiagnosticWriter) Submit(ev *Evidence) {
	if w == nil || ev == nil {
		return
	}
	w.seq++
	select {
	case w.ch <- diagnostic{seq: w.seq, ev: ev}:
	default:
		w.dropped.Add(1)
	}
}

// Written returns how many images reached disk.
func (w *DiagnosticWriter) Written() int64 {
	if w == nil {
		return 0
	}
	return w.written.Load()
}

// Dropped returns how many submissions were discarded because the buffer was full.
func (w *DiagnosticWriter) Dropped() int64 {
	if w == nil {
		return 0
	}
	return w.dropped.Load()
}

// Close drains the queue and waits for the writer. It is a no-op on a nil writer.
func (w *DiagnosticWriter) Close() {
	if w == nil {
		return
	}
	w.closeOnce.Do(func() {
		close(w.ch)
		w.wg.Wait()
		slog.Debug("Diagnostic writer closed", "written", w.written.Load(), "dropped", w.dropped.Load())
	})
}

func (w *DiagnosticWriter) run() {
	defer w.wg.Done()
	for d := range w.ch {
		path, err := w.write(d)
		if err != nil {
			slog.Warn("Failed to write match diagnostic", "error", err)
			continue
		}
		if path != "" {
			w.written.Add(1)
		}
	}
}

func (w *DiagnosticWriter) write(d diagnostic) (string, error) {
	if w.Localizer == nil {
		return "", nil
	}
	canvas := w.Localizer.Visualize(d.ev)
	if canvas == nil {
		return "", nil
	}

	outcome := "fail"
	if d.ev.Result.Success {
		outcome = "ok"
	}
	name := fmt.Sprintf("match_%04d_wp%d_%s.png", d.seq, d.ev.Ref, outcome)
	path := filepath.Join(w.Dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create diagnostic image: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, canvas); err != nil {
		return "", fmt.Errorf("failed to encode diagnostic image: %w", err)
	}
	return path, nil
}
