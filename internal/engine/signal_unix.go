//go:build !windows

package engine

import (
	"os"
	"syscall"
)

func sendInterrupt() {
	syscall.Kill(os.Getpid(), syscall.SIGINT)
}
