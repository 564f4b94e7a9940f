package main

// General API documentation for swaggo. Regenerate with
// `swag init -g cmd/lmrun/docs.go -o internal/httpapi/docs`.
//
// @title           lmrun API
// @version         1.0
// @description     HTTP API for running local GGUF models: load, generate, sampling, hardware and resource stats.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
