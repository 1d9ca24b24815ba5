//go:build !(tinygo && (stm32f4 || stm32f1))

// cmd/iapfw/main_stub.go
package main

// This file provides a stub entry point for the regular Go toolchain (staticcheck, go vet).
// The actual entry point is in main.go (TinyGo, stm32f4 or stm32f1 only).

import (
	"fmt"
	"os"
)

func main() {
	fmt.Fprintln(os.Stderr, "iapfw: build with tinygo for an stm32f4 or stm32f1 target")
	os.Exit(1)
}
