package main

import (
	"fmt"
	"os"

	"github.com/kristentruong11/sun11this/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
