package main

import (
	"github.com/jncsync/jncsync/cmd"
)

func main() {
	cmd.Execute()
}
