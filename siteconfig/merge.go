package siteconfig

// Merge overlays override onto base and returns a new document tree. Neither
// input is modified and the result shares no objects or arrays with them.
//
//   - A nil override (absent or JSON null at the root) yields base.
//   - If either side is not an object the override replaces base. Arrays are
//     therefore always replaced wholesale, never merged element by element.
//   - Two objects merge key by key: base keys keep their order, keys only in
//     the override are appended, and override values win per the rules above.
func Merge(base, override any) any {
	if override == nil {
		return cloneValue(base)
	}
	b, bok := base.(*Object)
	o, ook := override.(*Object)
	if !bok || !ook {
		return cloneValue(override)
	}

	out := b.Clone()
	for _, key := range o.keys {
		ov := o.values[key]
		bv, exists := b.values[key]
		bobj, bIsObj := bv.(*Object)
		oobj, oIsObj := ov.(*Object)
		if exists && bIsObj && oIsObj {
			out.Set(key, Merge(bobj, oobj))
			continue
		}
		out.Set(key, cloneValue(ov))
	}
	return out
}
