package main

import (
	"log"
	"os"
	sys "os"
)

type exiter struct{}

func (exiter) Exit(int) {}

func helper() {
	os.Exit(2)
}

func main() {
	os.Exit(1)           // want "avoid using os.Exit in main.main"
	sys.Exit(1)          // want "avoid using os.Exit in main.main"
	log.Fatal("boom")    // want "avoid using log.Fatal in main.main"
	log.Fatalf("%d", 1)  // want "avoid using log.Fatalf in main.main"
	log.Println("fine")

	var os exiter
	os.Exit(0)

	defer func() {
		log.Fatalln("deferred") // want "avoid using log.Fatalln in main.main"
	}()

	helper()
}
