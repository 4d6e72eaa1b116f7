package main

import "github.com/elys-network/ammcore/internal/cli"

func main() {
	cli.Execute()
}
