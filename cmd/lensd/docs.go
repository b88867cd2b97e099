package main

// General API documentation for swaggo. Run `swag init -g cmd/lensd/docs.go -o internal/docs` to regenerate.
//
// @title           lensd API
// @version         1.0
// @description     Logit lens and tokenization over traced language models.
//
// @contact.name   lensd maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
