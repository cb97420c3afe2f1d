package main

import (
	"github.com/joho/godotenv"

	"signal-scanner/internal/cli"
)

func main() {
	// Optional .env for local development; real deployments set env directly.
	_ = godotenv.Load()

	cli.Execute()
}
