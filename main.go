package main

import (
	"github.com/vaultkv/vaultkv/cmd"
)

func main() {
	cmd.Execute()
}
