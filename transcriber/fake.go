package transcriber

import (
	"context"
	"fmt"
	"sync"
)

// Fake is an in-memory uploader that records every location it was asked
// to upload.
type Fake struct {
	text string
	err  error

	mu        sync.Mutex
	locations []string
	release   chan struct{}
}

func NewFake(text string, err error) *Fake {
	return &Fake{text: text, err: err}
}

// Hold makes Upload block until Release is called.
func (f *Fake) Hold() {
	f.mu.Lock()
	f.release = make(chan struct{})
	f.mu.Unlock()
}

func (f *Fake) Release() {
	f.mu.Lock()
	if f.release != nil {
		close(f.release)
		f.release = nil
	}
	f.mu.Unlock()
}

func (f *Fake) Upload(ctx context.Context, location string) (string, error) {
	f.mu.Lock()
	f.locations = append(f.locations, location)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.err != nil {
		return "", fmt.Errorf("fake transcriber error: %w", f.err)
	}
	return f.text, nil
}

func (f *Fake) Locations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.locations...)
}
