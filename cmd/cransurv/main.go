package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/MF0323/cransurv/internal/app"
)

func main() {
	if err := app.Execute(); err != nil {
		if errors.Is(err, app.ErrWarnings) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
