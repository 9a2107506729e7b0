// Package clipboard copies transcripts to the system clipboard.
package clipboard

import (
	"errors"

	cb "github.com/atotto/clipboard"
)

// ErrUnsupported means no clipboard utility was found (xclip, xsel or
// wl-copy on Linux).
var ErrUnsupported = errors.New("no clipboard utility available")

func Available() error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	return nil
}

func Copy(text string) error {
	if err := Available(); err != nil {
		return err
	}
	return cb.WriteAll(text)
}

func Read() (string, error) {
	if err := Available(); err != nil {
		return "", err
	}
	return cb.ReadAll()
}
