package main

import (
	"github.com/rei-network/executive/command/root"
)

func main() {
	root.NewRootCommand().Execute()
}
