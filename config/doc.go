// Package config loads itemops settings.
//
// Values are resolved, lowest precedence first, from `default` struct
// tags, an optional itemops.yaml file, a .env file and ITEMOPS_*
// environment variables. Nested keys map to variables by replacing dots
// with underscores:
//
//	files.groups         ITEMOPS_FILES_GROUPS
//	cache.fluid_capacity ITEMOPS_CACHE_FLUID_CAPACITY
//	state.backend        ITEMOPS_STATE_BACKEND
//
// File paths may reference environment variables as $VAR or ${VAR}. An
// unset ${VAR} fails the load with ErrMissingEnv; $$ is a literal $.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Files.Groups)
package config
