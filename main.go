package main

import (
	"os"

	"github.com/tsucess/paeshift-backend-sub004/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
