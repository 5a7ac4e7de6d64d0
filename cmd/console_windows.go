//go:build windows

package main

import (
	"os"

	"golang.org/x/sys/windows"
)

// enableVT switches the console to virtual terminal mode so arrow keys arrive
// as ANSI sequences and the picker's escape codes are interpreted.
func enableVT() {
	consoles := []struct {
		f    *os.File
		flag uint32
	}{
		{os.Stdin, windows.ENABLE_VIRTUAL_TERMINAL_INPUT},
		{os.Stdout, windows.ENABLE_VIRTUAL_TERMINAL_PROCESSING},
	}
	for _, c := range consoles {
		h := windows.Handle(c.f.Fd())
		var mode uint32
		if windows.GetConsoleMode(h, &mode) == nil {
			windows.SetConsoleMode(h, mode|c.flag)
		}
	}
}
