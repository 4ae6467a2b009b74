// Package config loads the gateway's JSON configuration document through
// viper, applies environment overrides and validates the result with
// ozzo-validation. Besides the typed gateway settings it keeps the whole
// document, key case preserved, so arbitrary entries can be looked up by name.
package config
