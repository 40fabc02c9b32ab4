// Package main is the entry point of the covdelta CLI.
package main

import (
	"github.com/huangsam/covdelta/cmd"
	"github.com/huangsam/covdelta/internal/contract"
	"github.com/huangsam/covdelta/internal/iocache"
)

func main() {
	cmd.SetStoreManager(iocache.Manager)
	err := cmd.Execute()

	iocache.CloseStores()
	if perr := cmd.StopProfiling(); perr != nil {
		contract.LogWarn("Failed to stop profiling", perr)
	}
	if err != nil {
		contract.LogFatal("Command failed", err)
	}
}
