// Package server holds the HTTP server configuration.
//
// The configuration covers the listen port and the API key used by the
// auth middleware to protect every route. It is loaded as the "server"
// section of the global configuration.
package server
