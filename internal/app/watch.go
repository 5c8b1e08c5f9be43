package app

import (
	"sync"
	"time"

	"slot-editor/internal/image"
)

// ReferenceWatcher polls the reference image on disk and invokes a callback
// when a newer file appears, e.g. a camera snapshot refreshed by another
// process.
type ReferenceWatcher struct {
	mu            sync.Mutex
	ref           *image.Reference
	checkInterval time.Duration
	stopCh        chan struct{}
	running       bool
	onChange      func(path string)
}

// NewReferenceWatcher creates a watcher that checks every interval.
func NewReferenceWatcher(checkInterval time.Duration) *ReferenceWatcher {
	return &ReferenceWatcher{checkInterval: checkInterval}
}

// OnChange sets the callback to invoke when the watched file is newer than
// the loaded copy. The callback is called from a background goroutine.
func (w *ReferenceWatcher) OnChange(callback func(path string)) {
	w.mu.Lock()
	w.onChange = callback
	w.mu.Unlock()
}

// Watch switches the watcher to ref. A nil ref pauses notifications.
func (w *ReferenceWatcher) Watch(ref *image.Reference) {
	w.mu.Lock()
	w.ref = ref
	w.mu.Unlock()
}

// Start begins watching in a background goroutine.
func (w *ReferenceWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.stopCh = make(chan struct{})
	w.running = true
	go w.watchLoop(w.stopCh)
}

// Stop stops the watcher goroutine.
func (w *ReferenceWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}
	close(w.stopCh)
	w.running = false
}

func (w *ReferenceWatcher) watchLoop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			w.check()
		}
	}
}

// check fires the callback at most once per loaded copy: the ref is dropped
// until the caller installs the reloaded one with Watch.
func (w *ReferenceWatcher) check() {
	w.mu.Lock()
	ref, cb := w.ref, w.onChange
	if ref == nil || cb == nil || !ref.Changed() {
		w.mu.Unlock()
		return
	}
	w.ref = nil
	w.mu.Unlock()

	cb(ref.Path)
}
