package device

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Arrival is a root that newly looks like a storyteller device.
type Arrival struct {
	Root string
	Time time.Time
}

// Watcher announces device arrivals under a set of parent directories,
// the places removable media gets mounted. Filesystem notifications kick
// a rescan; a ticker catches mounts notifications miss. A root is
// announced once and re-announced only after it disappears and returns.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	parents   []string
	interval  time.Duration

	arrivals chan Arrival
	errors   chan error
	kick     chan struct{}

	announced map[string]bool
	mu        sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWatcher creates a watcher over the given parent directories. A zero
// interval rescans every two seconds.
func NewWatcher(parents []string, interval time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		parents:   parents,
		interval:  interval,
		arrivals:  make(chan Arrival, 16),
		errors:    make(chan error, 4),
		kick:      make(chan struct{}, 1),
		announced: make(map[string]bool),
		done:      make(chan struct{}),
	}, nil
}

// Arrivals returns the channel of device arrivals.
func (w *Watcher) Arrivals() <-chan Arrival {
	return w.arrivals
}

// Errors returns the channel of watch errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start begins watching. Parents that do not exist yet are skipped; the
// periodic rescan picks them up once they appear.
func (w *Watcher) Start() error {
	for _, parent := range w.parents {
		if _, err := os.Stat(parent); err != nil {
			continue
		}
		if err := w.fsWatcher.Add(parent); err != nil {
			return err
		}
	}

	w.scan()

	w.wg.Add(2)
	go w.eventLoop()
	go w.scanLoop()
	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.arrivals)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.kick <- struct{}{}:
			default:
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			select {
			case w.errors <- err:
			default:
			}
		}
	}
}

func (w *Watcher) scanLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-w.kick:
			w.scan()
		case <-ticker.C:
			w.scan()
		}
	}
}

// scan walks the candidate roots, announces the new ones and forgets the
// gone ones.
func (w *Watcher) scan() {
	candidates := append(append([]string{}, w.parents...), scanMountParents(w.parents)...)

	now := time.Now()
	present := make(map[string]bool)
	for _, root := range candidates {
		if !IsDevice(root) {
			continue
		}
		present[root] = true

		w.mu.Lock()
		fresh := !w.announced[root]
		if fresh {
			w.announced[root] = true
		}
		w.mu.Unlock()

		if fresh {
			select {
			case w.arrivals <- Arrival{Root: root, Time: now}:
			case <-w.done:
				return
			}
		}
	}

	w.mu.Lock()
	for root := range w.announced {
		if !present[root] {
			delete(w.announced, root)
		}
	}
	w.mu.Unlock()
}
