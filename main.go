package main

import (
	"os"

	"github.com/GoSGQ-Admin/GoSGQ-Admin/app"
)

func main() {
	err := app.Execute()
	if err != nil {
		os.Exit(1)
	}
}
