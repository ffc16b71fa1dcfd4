// Package engine wires the item components into one context object.
//
// An Engine owns the identity resolver, the group classifier, the search
// index and the handler registry of a catalog, along with the state store
// and telemetry they share. Definitions come from plain files named in
// config.FilesConfig:
//
//	groups            group definition lines, ";"-prefixed JSON directives
//	guid_filters      "strId,path.a.b,..." canonical key projections
//	handler_ordering  "handlerID,priority" lines
//	catalog           YAML items, presets, mods, translations and messages
//
// Missing files count as empty. Reload re-reads them all and rebuilds
// every cache; Watch does so whenever one of them changes.
//
// # Usage
//
//	e, err := engine.New(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer e.Close(ctx)
//	if err := e.Reload(ctx); err != nil {
//	    log.Print(err) // rejected lines; valid ones are installed
//	}
//	for _, m := range e.HandlersFor(ctx, item.New("minecraft:furnace", 0)) {
//	    fmt.Println(m.HandlerID())
//	}
package engine
