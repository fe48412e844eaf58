package main

import (
	"log"

	"github.com/ang60/strathconnect-go/cmd/internal/app"
)

func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
