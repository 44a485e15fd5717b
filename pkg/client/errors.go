package client

import "fmt"

// FileError reports an input file that cannot be used.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string { return fmt.Sprintf("cannot open %s for input: %v", e.Path, e.Err) }
func (e *FileError) Unwrap() error { return e.Err }

// ConnectError reports a server that could not be reached.
type ConnectError struct {
	Service string
	Addr    string
	Err     error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("could not contact %s on %s: %v", e.Service, e.Addr, e.Err)
}
func (e *ConnectError) Unwrap() error { return e.Err }
