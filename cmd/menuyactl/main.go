package main

import (
	"fmt"
	"os"

	"github.com/smallbiznis/menuya/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "menuyactl:", err)
		os.Exit(1)
	}
}
