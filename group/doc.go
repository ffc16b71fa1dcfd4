// Package group classifies items into ordered, filter-defined groups.
//
// Groups come from two sources, rebuilt together on every Reload: enabled
// presets in ModeGroup (newest preset first) followed by definition lines.
// A definition file is a sequence of filter expressions, each optionally
// preceded by directive lines of the form
//
//	; {"displayName": "Ores", "unlocalizedName": "group.ores", "expanded": true}
//
// that describe the group completed by the next filter line. A group whose
// filter matches everything or nothing is rejected.
//
// ClassifyAll maps every item of a catalog snapshot to the first group
// whose filter matches it. Expand/collapse state is saved to a
// persist.Store under StateKey and merged back by group ID on Reload.
package group
