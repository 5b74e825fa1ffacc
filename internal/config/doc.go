// Package config loads user settings from a TOML file, by default
// $XDG_CONFIG_HOME/envvault/config.toml:
//
//	profiles_dir   = "~/.config/envvault/profiles"
//	default_cipher = "passphrase"
//	use_keyring    = false
//	gpg_binary     = "gpg"
package config
