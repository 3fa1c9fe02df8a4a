package main

import (
	"os"

	isocmder "github.com/gridmind/iso/cmd/iso"
)

func main() {
	cmd := isocmder.NewIsoCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
