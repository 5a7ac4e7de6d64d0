//go:build !windows

package main

// enableVT is a no-op; non-Windows terminals already speak ANSI.
func enableVT() {}
