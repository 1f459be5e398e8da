// Package config loads typed configuration structs from environment
// variables, with optional .env support for local development.
//
// Configuration is declared as plain structs with `env` tags (see
// github.com/caarlos0/env/v11 for the tag syntax) and loaded with [Load] or
// [MustLoad]. Each distinct struct type is parsed once per process and then
// served from a cache, so independent components can load the same config
// type without coordinating.
//
//	var pgCfg pg.Config
//	config.MustLoad(&pgCfg)
//
//	var paddleCfg billing.PaddleConfig
//	config.MustLoad(&paddleCfg)
package config
