// Package config loads, validates, and hot-reloads the MachShop YAML
// configuration. Defaults are layered under the file so a minimal config
// only needs to name a store path.
package config
