package main

import (
	"fmt"
	"os"

	"github.com/arnavshah/aid-coordination-api/pkg/auth"
	"github.com/arnavshah/aid-coordination-api/pkg/config"
)

func main() {
	config.LoadDotEnv()

	if len(os.Args) < 2 {
		fmt.Println("Usage: keygen <name>")
		os.Exit(1)
	}

	secret := os.Getenv("API_MASTER_SECRET")
	if secret == "" {
		fmt.Println("Error: API_MASTER_SECRET not set")
		os.Exit(1)
	}

	name := os.Args[1]
	key := auth.New("", secret, 0).GenerateHMACKey(name)
	fmt.Printf("Generated Key for %s:\n%s\n", name, key)
}
