package config

import _ "embed"

//go:embed config.toml.template
var starterTemplate []byte
