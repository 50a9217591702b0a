//go:build unix

package memory

import (
	"os"
	"syscall"
)

func defaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGUSR1}
}
