package main

import (
	"log"
	"os"

	"github.com/imkarma/zedd/internal/cli"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
