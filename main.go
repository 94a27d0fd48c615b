package main

import (
	"log"

	mock "github.com/datachainlab/grandpa-relayer/chains/mock/module"
	substrate "github.com/datachainlab/grandpa-relayer/chains/substrate/module"
	"github.com/datachainlab/grandpa-relayer/cmd"
)

func main() {
	if err := cmd.Execute(
		substrate.Module{},
		mock.Module{},
	); err != nil {
		log.Fatal(err)
	}
}
