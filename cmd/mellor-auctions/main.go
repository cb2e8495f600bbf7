package main

import "github.com/pfrederiksen/mellor-auctions/internal/cli"

func main() {
	cli.Execute()
}
