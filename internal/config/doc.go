// Package config loads, normalizes, and validates Bookforge configuration.
//
// Configuration is TOML. Load resolves an explicit path first, then
// ~/.config/bookforge/config.toml, then ./bookforge.toml in the working
// directory. All path fields are tilde-expanded and made absolute before the
// config is handed to other packages.
package config
