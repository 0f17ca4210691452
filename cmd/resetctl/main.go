package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tenantcare/auth-service/internal/logger"
)

func main() {
	_ = godotenv.Load()
	// stdout carries command output
	logger.InitWithWriter(os.Stderr, "resetctl")

	if err := newRootCommand(defaultEnv()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
