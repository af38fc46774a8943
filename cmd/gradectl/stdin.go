package main

import (
	"io"
	"os"
)

var stdin io.Reader = os.Stdin

func readAllStdin() ([]byte, error) {
	return io.ReadAll(stdin)
}
