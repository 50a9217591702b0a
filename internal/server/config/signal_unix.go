//go:build unix

package config

import (
	"fmt"
	"os"
	"strings"
	"syscall"
)

var signals = map[string]syscall.Signal{
	"SIGUSR1": syscall.SIGUSR1,
	"SIGUSR2": syscall.SIGUSR2,
	"SIGHUP":  syscall.SIGHUP,
}

// ParseSignal resolves a signal name such as "SIGUSR1" or "usr1".
func ParseSignal(name string) (os.Signal, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	if !strings.HasPrefix(n, "SIG") {
		n = "SIG" + n
	}
	sig, ok := signals[n]
	if !ok {
		return nil, fmt.Errorf("unsupported signal %q", name)
	}
	return sig, nil
}
