package main

import "fusionguard/internal/cli"

func main() {
	cli.Execute()
}
