package main

// General API documentation for swaggo. Run `swag init -g cmd/genloop/docs.go -o docs`
// to regenerate the docs package served under -tags=swagger.
//
// @title           genloop API
// @version         1.0
// @description     HTTP API for a single llama.cpp generation session: streaming
// @description     queries, session lifecycle and state snapshots.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
