// Package template defines the template engine seam used by the HTML
// renderer. The pongo subpackage provides the default implementation.
package template
