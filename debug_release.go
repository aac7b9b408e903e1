// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

//go:build !debug

package sylvan

import (
	"os"

	"github.com/rs/zerolog"
)

const _DEBUG bool = false

func init() {
	defaultLogger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)
}
