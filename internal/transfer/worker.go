// Package transfer implements the per-download transfer worker: one
// HTTP GET, optionally resumed with a Range header, streamed into a
// "<path>.download" sibling file with throttled progress reporting.
//
// The Worker never touches the Store or EventBus directly. Every state
// transition is routed back through caller-supplied Hooks, which the
// Engine implements — this keeps all Record mutation serialized through
// the Engine's own locking, per spec §4.4 and the "delegate/callback
// -driven transfer" design note in spec §9.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// BufferSize is the streaming read buffer size from spec §4.4 step 8.
const BufferSize = 8 * 1024

// Disposition is the Engine's verdict after a throttled progress report,
// telling the Worker how to proceed.
type Disposition int

const (
	// Continue means the Record is still InProgress; keep streaming.
	Continue Disposition = iota
	// StopPaused means the Record transitioned to Paused; stop cleanly,
	// leaving the partial file intact for a later resume.
	StopPaused
	// StopOther means the Record was removed or moved to some other
	// terminal status (Cancelled, etc); stop cleanly without further
	// state changes.
	StopOther
)

// Hooks lets the Engine observe and drive a transfer without the
// Worker ever touching the Store or EventBus itself.
type Hooks struct {
	// Started is invoked once the response is validated, before any
	// bytes are written, so the Engine can transition the Record to
	// InProgress (store write + event emit).
	Started func()

	// Progress is invoked for each throttled progress tick (spec §4.4
	// step 8's 1% threshold). The Engine looks up the Record's current
	// status and reports back how the Worker should proceed.
	Progress func(percent float64) Disposition

	// Completed is invoked once the response body is fully read. The
	// Engine re-checks the Record: if still InProgress, it performs the
	// final rename and removes the Record; otherwise it leaves the
	// partial file alone.
	Completed func()

	// Failed is invoked on any HTTP/IO error, including "the server
	// does not support partial downloads". The Engine removes the
	// Record, deletes the temp file, and emits Cancelled with the
	// reason logged.
	Failed func(reason error)
}

// Worker executes one transfer attempt for one Record.
type Worker struct {
	client *http.Client
}

// New creates a Worker with the standard connect/idle timeouts and
// redirect policy (spec §4.4 step 3, §6.4).
func New() *Worker {
	return &Worker{client: newHTTPClient()}
}

// NewWithTimeouts creates a Worker with caller-supplied connect/idle
// timeouts, for Engine instances configured away from the spec
// defaults (internal/config).
func NewWithTimeouts(connectTimeout, idleReadTimeout time.Duration) *Worker {
	return &Worker{client: newHTTPClientWithTimeouts(connectTimeout, idleReadTimeout)}
}

// Run performs the algorithm in spec §4.4 steps 1-9. ctx governs hard
// cancellation (spec §5): cancelling it aborts any in-flight read
// immediately. Graceful pause is detected cooperatively through Hooks.
// Run blocks until the transfer finishes, fails, or is stopped.
func (w *Worker) Run(ctx context.Context, url, path string, hooks Hooks) {
	temp := path + ".download"

	have := int64(0)
	if info, err := os.Stat(temp); err == nil {
		have = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		w.fail(ctx, hooks, err)
		return
	}
	if have > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", have))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.fail(ctx, hooks, err)
		return
	}
	defer resp.Body.Close()

	if have > 0 && resp.StatusCode != http.StatusPartialContent {
		hooks.Failed(errors.New("server does not support partial downloads"))
		return
	}
	if resp.StatusCode != http.StatusPartialContent && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
		hooks.Failed(fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
		return
	}
	if resp.Body == nil {
		hooks.Failed(errors.New("empty response body"))
		return
	}

	var total int64
	if resp.ContentLength >= 0 {
		total = resp.ContentLength + have
	}

	if err := os.MkdirAll(filepath.Dir(temp), 0o755); err != nil {
		w.fail(ctx, hooks, err)
		return
	}

	file, err := os.OpenFile(temp, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		w.fail(ctx, hooks, err)
		return
	}
	defer file.Close()

	hooks.Started()

	if err := w.stream(ctx, resp.Body, file, have, total, hooks); err != nil {
		if !errors.Is(err, errStopped) {
			w.fail(ctx, hooks, err)
		}
		return
	}

	hooks.Completed()
}

// errStopped is an internal sentinel: the Progress hook asked the
// Worker to stop, which is not a failure and must not call hooks.Failed.
var errStopped = errors.New("transfer: stopped by hook")

// fail reports err through hooks.Failed, unless ctx is already done. A
// cancelled context means the Engine itself tore this transfer down
// (Cancel, or a replacing spawn); the resulting I/O error (e.g. a Read
// returning "context canceled") is expected noise, not a real failure,
// and must not reach Hooks.Failed, whose Engine handler would remove
// the Record and emit Cancelled while the original caller is still
// blocked waiting for this goroutine to exit.
func (w *Worker) fail(ctx context.Context, hooks Hooks, err error) {
	if ctx.Err() != nil {
		return
	}
	hooks.Failed(err)
}

func (w *Worker) stream(ctx context.Context, body io.Reader, file *os.File, have, total int64, hooks Hooks) error {
	buf := make([]byte, BufferSize)
	downloaded := have
	lastEmitted := -1.0

	for {
		select {
		case <-ctx.Done():
			// Hard cancellation: the Engine has already updated the
			// Record (spec §4.4 step 8); stop without further state
			// changes.
			return errStopped
		default:
		}

		n, rerr := body.Read(buf)
		if n > 0 {
			if _, werr := file.Write(buf[:n]); werr != nil {
				return werr
			}
			downloaded += int64(n)

			var progress float64
			if total > 0 {
				progress = 100 * float64(downloaded) / float64(total)
				if progress > 100 {
					progress = 100
				}
			}

			if progress < 100 && progress-lastEmitted <= 1.0 {
				// throttled: within 1% of the last emitted tick
			} else {
				lastEmitted = progress
				switch hooks.Progress(progress) {
				case StopPaused, StopOther:
					return errStopped
				}
			}
		}

		if rerr != nil {
			if rerr == io.EOF {
				return nil
			}
			if ctx.Err() != nil {
				// body.Read unblocked with an I/O error because ctx was
				// cancelled while the read was in flight, not because
				// the remote end failed. Report the same sentinel as
				// the top-of-loop check so Run treats it identically.
				return errStopped
			}
			return rerr
		}
	}
}
