package main

import (
	"os"

	"github.com/duniter/duniter-rs-sub003/app"
)

func main() {
	if err := app.StartApp(); err != nil {
		os.Exit(1)
	}
}
