//go:build windows

package cmd

import "syscall"

const utf8CodePage = 65001

// setupConsole switches the console to UTF-8 so emoji and non-Latin titles print
func setupConsole() {
	kernel32 := syscall.NewLazyDLL("kernel32.dll")
	for _, name := range []string{"SetConsoleOutputCP", "SetConsoleCP"} {
		kernel32.NewProc(name).Call(uintptr(utf8CodePage))
	}
}
