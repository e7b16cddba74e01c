package main

import (
	"github.com/plumelang/plume/cmd"
)

var version = "v0.3.1"

func main() {
	cmd.Execute(version)
}
