package capture

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Kewton/voice-chat-app/pkg/audioconv"
)

// DirSource replays audio files from a directory instead of a microphone,
// for hosts without capture hardware. Each Listen polls the directory until
// an unconsumed wav/mp3/ogg file shows up or timeout elapses; files are
// consumed once, in name order.
type DirSource struct {
	dir string

	mu   sync.Mutex
	seen map[string]bool
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{dir: dir, seen: make(map[string]bool)}
}

func (d *DirSource) Listen(ctx context.Context, timeout, phraseLimit time.Duration) (Clip, error) {
	deadline := time.Now().Add(timeout)
	for {
		path, ok, err := d.next()
		if err != nil {
			return Clip{}, err
		}
		if ok {
			maxSamples := int(phraseLimit.Seconds() * audioconv.TargetRate)
			samples, err := audioconv.DecodeFile(path, maxSamples)
			if err != nil {
				return Clip{}, err
			}
			return Clip{Samples: samples, Rate: audioconv.TargetRate}, nil
		}
		if time.Now().After(deadline) {
			return Clip{}, ErrTimedOut
		}
		select {
		case <-ctx.Done():
			return Clip{}, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (d *DirSource) next() (string, bool, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return "", false, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".wav", ".mp3", ".ogg", ".oga":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, name := range names {
		if !d.seen[name] {
			d.seen[name] = true
			return filepath.Join(d.dir, name), true, nil
		}
	}
	return "", false, nil
}
