// main.go
package main

import (
	"github.com/joho/godotenv"

	"Tradewinds/cmd"
)

func main() {
	// A missing .env file is fine, the defaults carry the app.
	_ = godotenv.Load()
	cmd.Execute()
}
