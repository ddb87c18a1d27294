package main

import "github.com/gdi-labs/importkit/internal/cmd"

func main() {
	cmd.Execute()
}
