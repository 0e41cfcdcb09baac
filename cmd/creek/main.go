package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/ggonzalez94/creek-cli/internal/app"
)

func main() {
	// A .env file in the working directory may carry PRIVATE_KEYS and CREEK_* settings.
	_ = godotenv.Load()
	runner := app.NewRunner()
	os.Exit(runner.Run(os.Args[1:]))
}
