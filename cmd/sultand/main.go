package main

import "github.com/sultan-labs/sultand/internal/cli"

func main() {
	cli.Execute()
}
