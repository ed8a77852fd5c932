package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/tabledit/internal/cli"
)

func main() {
	// A .env file is optional; real environment variables take precedence.
	_ = godotenv.Load()

	os.Exit(cli.Execute(cli.OSEnv(), os.Args[1:]))
}
