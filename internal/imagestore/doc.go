// Package imagestore keeps generated images in a local directory and serves
// them back by file name.
package imagestore
