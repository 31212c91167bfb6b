package main

import (
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"

	"github.com/bugVanisher/srs-session/cmd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Any("panic", r).Bytes("stack", debug.Stack()).Msg("unhandled panic")
			os.Exit(2)
		}
	}()
	os.Exit(cmd.Execute())
}
