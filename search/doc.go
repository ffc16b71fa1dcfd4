// Package search keeps a text index over item descriptions and matches
// regular expressions against it.
//
// The indexed text of an item is its description minus the first line
// (the item's own name), joined with newlines, with § formatting codes
// removed. Text is computed on first use and cached by content key;
// PopulateAsync warms the cache for a whole catalog in the background.
//
// Patterns use github.com/dlclark/regexp2, which follows .NET and Java
// syntax (lookarounds, backreferences, inline options such as (?i)).
package search
