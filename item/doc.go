// Package item defines the item variant value shared by every component:
// its structured record form, its content key, and the filter predicates
// used to group and hide variants.
//
// A Variant is compared by content. Two variants with the same type, damage
// and metadata tree produce the same Key; Count never participates, so a
// stack of one and a stack of sixty-four classify and search identically.
//
// # Filters
//
// ParseFilter understands a small expression language:
//
//	*                 everything
//	type=minecraft:ore  exact type (a trailing * matches a prefix)
//	@gregtech         every type in the gregtech namespace
//	damage=3          exact damage, damage=1-5 an inclusive range
//	tag.display.Name=Foo  value at a metadata path
//	!term             negation
//	a b               both a and b
//	a | b             either a or b
//
// A bare word is shorthand for type=word.
package item
