package watcher

import (
	"time"

	"savemanager/pkg/models"
)

/*
Debouncer:
  - reset time if u see an event within the debounce window.
  - if u see an event in the window, do not send
  - send after the window passes with no events
*/
func (w *Watcher) debouncedSend(path string, fn func()) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if timer, exists := w.debouncer[path]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(w.opts.Debounce, func() {
		fn()
		w.debounceMu.Lock()
		// a newer timer may have been armed for path while fn ran
		if w.debouncer[path] == timer {
			delete(w.debouncer, path)
		}
		w.debounceMu.Unlock()
	})
	w.debouncer[path] = timer
}

// markChanged restarts the quiet timer for the whole tree.
func (w *Watcher) markChanged() {
	w.settleMu.Lock()
	defer w.settleMu.Unlock()

	w.pending++
	w.lastChange = time.Now()

	if w.settleTimer != nil {
		w.settleTimer.Stop()
	}
	w.settleTimer = time.AfterFunc(w.opts.Quiet, w.settle)
}

func (w *Watcher) settle() {
	w.settleMu.Lock()
	ev := models.SettleEvent{Root: w.root, Changes: w.pending, Last: w.lastChange}
	w.pending = 0
	w.settleMu.Unlock()

	if ev.Changes == 0 {
		return
	}

	select {
	case w.settleChan <- ev:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) Changes() <-chan models.FileEvent {
	return w.changeChan
}

func (w *Watcher) Settled() <-chan models.SettleEvent {
	return w.settleChan
}

func (w *Watcher) Errors() <-chan error {
	return w.errorChan
}

func (w *Watcher) Close() error {
	w.cancel()

	w.debounceMu.Lock()
	for _, t := range w.debouncer {
		t.Stop()
	}
	w.debounceMu.Unlock()

	w.settleMu.Lock()
	if w.settleTimer != nil {
		w.settleTimer.Stop()
	}
	w.settleMu.Unlock()

	return w.fsNotifyWatcher.Close()
}
