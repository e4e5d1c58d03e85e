package main

import (
	cmd "github.com/kerbaras/comics/cmd/comics"
)

func main() {
	cmd.Execute()
}
