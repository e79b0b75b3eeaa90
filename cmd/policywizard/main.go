package main

import "github.com/coursekit/policywizard/internal/cli"

func main() {
	cli.Execute()
}
