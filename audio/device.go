package audio

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

var ErrSelectionAborted = errors.New("device selection aborted")

// SelectDevice presents an interactive picker on the terminal. With a single
// device it returns that device without prompting.
func SelectDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch len(devices) {
	case 0:
		return nil, errors.New("no capture devices found")
	case 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	old, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, old)

	i, err := pick(os.Stdin, os.Stdout, devices)
	if err != nil {
		return nil, err
	}
	return &devices[i], nil
}

type picker struct {
	out     io.Writer
	devices []DeviceInfo
	cursor  int
	drawn   bool
}

func (p *picker) render() {
	if p.drawn {
		fmt.Fprintf(p.out, "\x1b[%dA", len(p.devices)+2)
	}
	p.drawn = true
	fmt.Fprint(p.out, "\r\x1b[J")
	fmt.Fprint(p.out, "Select microphone (↑/↓ or j/k, Enter to confirm):\r\n\r\n")
	for i, d := range p.devices {
		tag := ""
		if IsBluetooth(d.Name) {
			tag = " \x1b[33m[bluetooth: lower quality]\x1b[0m"
		}
		if i == p.cursor {
			fmt.Fprintf(p.out, "  \x1b[1;36m▶ %s%s\x1b[0m\r\n", d.Name, tag)
		} else {
			fmt.Fprintf(p.out, "    %s%s\r\n", d.Name, tag)
		}
	}
}

// key applies one raw keypress. It returns done once the user confirms or
// aborts.
func (p *picker) key(k []byte) (done bool, err error) {
	switch {
	case len(k) == 1 && (k[0] == '\r' || k[0] == '\n'):
		return true, nil
	case len(k) == 1 && (k[0] == 3 || k[0] == 'q'): // Ctrl+C
		return true, ErrSelectionAborted
	case len(k) == 1 && k[0] == 'j', len(k) == 3 && k[0] == 0x1b && k[2] == 'B':
		p.cursor = min(p.cursor+1, len(p.devices)-1)
	case len(k) == 1 && k[0] == 'k', len(k) == 3 && k[0] == 0x1b && k[2] == 'A':
		p.cursor = max(p.cursor-1, 0)
	}
	return false, nil
}

// pick runs the picker over a raw-mode input stream and returns the index of
// the chosen device.
func pick(in io.Reader, out io.Writer, devices []DeviceInfo) (int, error) {
	p := &picker{out: out, devices: devices}
	p.render()
	buf := make([]byte, 3)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return 0, fmt.Errorf("reading input: %w", err)
		}
		done, err := p.key(buf[:n])
		if done {
			fmt.Fprint(out, "\r\n")
			return p.cursor, err
		}
		p.render()
	}
}
