package main

import (
	"os"

	"github.com/openrealty/openrealty/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
