package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           fakellm API
// @version         1.0
// @description     OpenAI-compatible HTTP API backed by small local GGUF models.
//
// @contact.name   fakellm maintainers
// @contact.url    https://github.com/your-org/fakellm
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
