package main

import (
	"fmt"
	"os"

	"github.com/turtacn/ChemClassify/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "chemclass:", err)
		os.Exit(1)
	}
}
