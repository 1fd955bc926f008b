package ir

import "sort"

func sortUses(uses []ValueUse) {
	sort.SliceStable(uses, func(i, j int) bool {
		a, b := uses[i], uses[j]
		if a.SourceExpr != b.SourceExpr {
			return a.SourceExpr < b.SourceExpr
		}

		return a.Path.Less(b.Path)
	})
}
