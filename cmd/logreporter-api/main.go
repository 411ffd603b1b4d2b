package main

import (
	"context"
	"log"

	"github.com/logreporter-dev/logreporter/internal/reporter"
)

func main() {
	if err := reporter.App(context.Background()); err != nil {
		log.Fatal(err)
	}
}
