package main

import "github.com/ogulcanaydogan/campus-guardian/internal/cli"

func main() {
	cli.Execute()
}
