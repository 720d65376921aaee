//go:build !statsview

package statsview

import "io"

// Launch is a no-op without the statsview build tag.
func Launch(output io.Writer, addr string) {}

// Available returns false without the statsview build tag.
func Available() bool {
	return false
}
