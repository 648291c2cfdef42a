package navigation

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Result decoding is lenient: an item that fails to decode or carries an
// invalid range is skipped, and a result that is not the expected shape
// decodes to nothing.

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}

// rawItems splits a JSON array result. A single object is treated as a one
// element array.
func rawItems(raw json.RawMessage) []json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return nil
	}
	switch raw[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil
		}
		return items
	case '{':
		return []json.RawMessage{raw}
	default:
		return nil
	}
}

// decodeLocation accepts Location and LocationLink
func decodeLocation(raw json.RawMessage) (Location, bool) {
	var w wireLocationLink
	if err := json.Unmarshal(raw, &w); err != nil {
		return Location{}, false
	}

	uri, rng := w.URI, w.Range
	if uri == "" {
		uri, rng = w.TargetURI, w.TargetSelectionRange
	}
	if uri == "" || rng == nil || !rng.valid() {
		return Location{}, false
	}
	return Location{Path: URIToPath(uri), Range: toRange(*rng)}, true
}

func decodeLocations(raw json.RawMessage) []Location {
	items := rawItems(raw)
	locs := make([]Location, 0, len(items))
	for _, item := range items {
		if loc, ok := decodeLocation(item); ok {
			locs = append(locs, loc)
		}
	}
	return locs
}

// decodeSymbols flattens DocumentSymbol trees and SymbolInformation lists
// into one list, parents before children.
func decodeSymbols(raw json.RawMessage, path string) []Symbol {
	var out []Symbol
	for _, item := range rawItems(raw) {
		out = appendSymbol(out, item, path, "")
	}
	return out
}

func appendSymbol(out []Symbol, raw json.RawMessage, path, container string) []Symbol {
	var w wireSymbol
	if err := json.Unmarshal(raw, &w); err != nil || w.Name == "" {
		return out
	}

	sym := Symbol{
		Name:      w.Name,
		Kind:      kindFromLSP(w.Kind),
		Detail:    w.Detail,
		Container: container,
		Path:      path,
	}

	switch {
	case w.Location != nil:
		// SymbolInformation
		if !w.Location.Range.valid() {
			return out
		}
		sym.Path = URIToPath(w.Location.URI)
		sym.Range = toRange(w.Location.Range)
		sym.Selection = sym.Range
		if w.ContainerName != "" {
			sym.Container = w.ContainerName
		}
	case w.Range != nil && w.Range.valid():
		sym.Range = toRange(*w.Range)
		sym.Selection = sym.Range
		if w.SelectionRange != nil && w.SelectionRange.valid() {
			sym.Selection = toRange(*w.SelectionRange)
		}
	default:
		return out
	}

	out = append(out, sym)
	for _, child := range w.Children {
		out = appendSymbol(out, child, path, sym.Name)
	}
	return out
}

func decodeCallItem(raw json.RawMessage) (Symbol, bool) {
	var item callHierarchyItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return Symbol{}, false
	}
	if item.Name == "" || item.URI == "" || !item.Range.valid() {
		return Symbol{}, false
	}

	sym := Symbol{
		Name:   item.Name,
		Kind:   kindFromLSP(item.Kind),
		Detail: item.Detail,
		Path:   URIToPath(item.URI),
		Range:  toRange(item.Range),
	}
	sym.Selection = sym.Range
	if item.SelectionRange.valid() {
		sym.Selection = toRange(item.SelectionRange)
	}
	return sym, true
}

// decodeHover flattens MarkupContent, MarkedString and MarkedString[]
func decodeHover(raw json.RawMessage) string {
	if isNull(raw) {
		return ""
	}
	var h hoverResult
	if err := json.Unmarshal(raw, &h); err != nil {
		return ""
	}
	return strings.TrimSpace(hoverText(h.Contents))
}

func hoverText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if json.Unmarshal(raw, &s) == nil {
			return s
		}
	case '{':
		var m markedString
		if json.Unmarshal(raw, &m) == nil {
			return m.Value
		}
	case '[':
		var parts []json.RawMessage
		if json.Unmarshal(raw, &parts) == nil {
			texts := make([]string, 0, len(parts))
			for _, p := range parts {
				if t := hoverText(p); t != "" {
					texts = append(texts, t)
				}
			}
			return strings.Join(texts, "\n\n")
		}
	}
	return ""
}
