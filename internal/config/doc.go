// Package config loads the console configuration from
// ~/.config/gatehouse/config.toml.
//
// A missing file is not an error; every field has a default. Durations are
// Go duration strings ("10s", "500ms"). The API token may come from the
// GATEHOUSE_TOKEN environment variable instead of the file, and the variable
// wins when both are set. Paths starting with ~ are expanded against the
// user's home directory.
//
// Example:
//
//	api_url = "https://parking.example.com"
//	request_timeout = "10s"
//	poll_interval = "30s"
//	items_per_page = 10
//	search_debounce = "500ms"
//	log_file = "~/.local/state/gatehouse/gatehouse.log"
//	metrics_addr = "127.0.0.1:9100"
package config
