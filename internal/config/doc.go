// Package config handles the optional tool configuration for redeploy.
//
// Configuration is layered, lowest precedence first:
//
//  1. Built-in defaults (git/cargo/pm2 from PATH, target/release artifacts)
//  2. A config file in the application directory: redeploy.jsonc (JSONC,
//     comments allowed, stripped with github.com/tidwall/jsonc before
//     parsing with encoding/json) or redeploy.yaml / redeploy.yml
//  3. Environment variables (REDEPLOY_GIT_BIN, REDEPLOY_CARGO_BIN,
//     REDEPLOY_PM2_BIN), with a .env file in the application directory
//     loaded first via github.com/joho/godotenv
//
// Every run works with no configuration at all; the file and env layers
// exist for hosts where the tools live outside PATH or the build emits
// its artifact somewhere non-standard.
package config
