package main

import "github.com/vietddude/genie/internal/cli"

func main() {
	cli.Execute()
}
