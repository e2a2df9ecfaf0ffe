package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/abramin/compatlens/cmd/compatlens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, cmd.ErrFindings) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
