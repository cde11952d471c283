package main

import (
	"github.com/robotalks/lockstep/pkg/cli/sh"
	env "github.com/robotalks/lockstep/pkg/l1/env/connector"

	_ "github.com/robotalks/lockstep/pkg/cli/cmds/seq"
)

//go-build: CGO_ENABLED=0

func init() {
	env.SetupFlags()
}

func main() {
	sh.Main()
}
