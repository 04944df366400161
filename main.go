package main

import (
	"log"

	"github.com/FranksOps/serpent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
