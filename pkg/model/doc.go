// Package model defines the server-described form schema consumed by the
// engine: fields, visibility conditions, option sets, and the event envelope
// that carries them. Schema values are immutable for the lifetime of a form
// session; FormData is the only mutable structure and maps field keys to the
// raw string values typed by the user.
package model
