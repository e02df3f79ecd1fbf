package main

import "github.com/ShepAlderson/copilot-orchestra/internal/cli"

func main() {
	cli.Execute()
}
