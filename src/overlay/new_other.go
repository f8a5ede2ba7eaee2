//go:build !windows

package overlay

// New returns the console presenter; only Windows has a native
// overlay window implementation.
func New(opts Options) Presenter {
	return NewConsole(opts)
}
