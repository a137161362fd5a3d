// Package validation checks configuration values before the cache starts.
//
// Struct tag validation uses go-playground/validator and reports fields by
// their mapstructure key, so messages match the config file:
//
//	type Config struct {
//	    Provider string `mapstructure:"provider" validate:"required,oneof=memory sqlite redis"`
//	}
//	err := validation.Validate(cfg)
//
// Rules that span several fields are collected with a Validator:
//
//	v := validation.New()
//	v.Custom(cfg.Dir != "", "store.dir", "is required for the sqlite provider")
//	err := v.Validate()
package validation
