//go:build windows

package audio

import "os"

// Windows has no job-control signals; cues keep playing through a pause.
func suspend(p *os.Process) error {
	return ErrUnsupported
}

func resume(p *os.Process) error {
	return ErrUnsupported
}
