package config

import "errors"

var (
	ErrMissingSetting = errors.New("missing required setting")
	ErrInvalidRecipe  = errors.New("invalid recipe")
)
