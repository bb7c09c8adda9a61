package appscout

import (
	"sort"

	"codeberg.org/d-buckner/appscout/internal/backend"
)

// mergeSources folds raw discovery candidates into deduplicated App records.
// Candidates sharing an identifier collapse into one record; output order
// follows the order in which each identifier was first seen, so a full scan
// over stable directories yields a stable listing.
func mergeSources(sources []backend.Source) []App {
	order := make([]string, 0, len(sources))
	groups := make(map[string][]backend.Source, len(sources))
	for _, src := range sources {
		if src.Identifier == "" {
			continue
		}
		if _, seen := groups[src.Identifier]; !seen {
			order = append(order, src.Identifier)
		}
		groups[src.Identifier] = append(groups[src.Identifier], src)
	}

	apps := make([]App, 0, len(order))
	for _, id := range order {
		apps = append(apps, foldGroup(groups[id]))
	}
	return apps
}

// foldGroup merges one identifier's candidates field-wise. Candidates are
// ranked before folding, so the outcome depends only on the set, not on the
// order sources happened to be discovered in.
func foldGroup(group []backend.Source) App {
	ranked := make([]backend.Source, len(group))
	copy(ranked, group)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Kind.Authority() != ranked[j].Kind.Authority() {
			return ranked[i].Kind.Authority() > ranked[j].Kind.Authority()
		}
		return ranked[i].Origin < ranked[j].Origin
	})

	app := App{Identifier: ranked[0].Identifier}
	for _, src := range ranked {
		if app.Name == "" {
			app.Name = src.Name
		}
		if app.Path == "" {
			app.Path = src.Path
		}
		if app.Icon == nil && src.IconPath != "" {
			app.Icon = &IconRef{Path: src.IconPath, Index: src.IconIndex}
		}
		for locale, name := range src.LocalizedNames {
			if app.LocalizedNames == nil {
				app.LocalizedNames = make(map[string]string)
			}
			if _, exists := app.LocalizedNames[locale]; !exists {
				app.LocalizedNames[locale] = name
			}
		}
		for key, value := range src.Meta {
			if app.Metadata == nil {
				app.Metadata = make(map[string]string)
			}
			if _, exists := app.Metadata[key]; !exists {
				app.Metadata[key] = value
			}
		}
	}
	return app
}
