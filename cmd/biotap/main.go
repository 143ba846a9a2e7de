package main

import (
	"log"

	"github.com/mvolkov/biotap/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		log.Fatalf("application init error: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatalf("application run error: %v", err)
	}
}
