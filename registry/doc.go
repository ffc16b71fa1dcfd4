// Package registry records recipe-handler metadata and handler ordering.
//
// Extensions describe their handlers with messages (registerHandlerInfo,
// removeHandlerInfo, registerCatalystInfo, removeCatalystInfo) carrying a
// flat value map. Process validates them, applies the mod requirement and
// exclusion checks through a ModLoader, and records the result.
//
// The ordering file assigns priorities to handler IDs:
//
//	# handlerID,priority
//	smelting,-10
//	mod.crusher,5
//
// Compare orders handlers by ascending priority (unlisted handlers have
// priority 0), then by handler ID.
package registry
