// Package config defines the engine configuration shared by the unit
// converter, the vessel arithmetic and the recipe queries: which units
// content is stored in, which units results are displayed in, how many
// decimals each unit is rounded to, and the default colormap attached to
// visualization tables.
//
// A Config is an explicit value. It is built from Default and optionally
// overlaid with a TOML file via Load, then threaded into every component that
// needs it. Nothing in this module reads configuration from process-global
// state.
package config
