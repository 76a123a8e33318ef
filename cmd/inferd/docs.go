package main

// General API documentation for swaggo. Run swag against this package to
// regenerate docs.
//
// @title           inferd API
// @version         1.0
// @description     HTTP API for streaming text-generation inference.
//
// @BasePath  /
//
// @schemes http
