// Package render normalises model replies and converts stored markdown into
// the HTML fragments returned to pollers and history readers.
package render
