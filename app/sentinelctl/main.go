package main

import (
	"github.com/hydraide/sentinel/app/panichandler"
	"github.com/hydraide/sentinel/app/paniclogger"
	"github.com/hydraide/sentinel/app/sentinelctl/cmd"
)

func main() {
	defer func() { _ = paniclogger.Close() }()
	defer panichandler.Recover("sentinelctl main")

	cmd.Execute()
}
