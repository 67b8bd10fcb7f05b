// Package utils provides common utility functions shared across features.
// Its main job is loose-type conversion for the external license API,
// whose JSON payloads are not consistently typed across record vintages.
package utils
