package utils

import (
	"os"

	"golang.org/x/sys/unix"
)

// IOCtl はデバイスファイルに対してioctlを発行する
func IOCtl(f *os.File, code uintptr, arg uintptr) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), code, arg)
	if errno != 0 {
		return errno
	}
	return nil
}
