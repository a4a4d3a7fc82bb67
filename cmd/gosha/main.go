// Package main is the gosha CLI entrypoint.
package main

import (
	"os"

	"gosha/internal/app"
)

func main() {
	application := app.New()
	os.Exit(application.Run(os.Args[1:]))
}
