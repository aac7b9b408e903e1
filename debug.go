// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

//go:build debug

package sylvan

import (
	"os"

	"github.com/rs/zerolog"
)

const _DEBUG bool = true

func init() {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}
