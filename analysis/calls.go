// Copyright © 2024 The wat-lsp authors

package analysis

import "github.com/EmNudge/wat-lsp-sub000/syntax"

// CallSite is one reference from inside a function body to a function,
// made by a call, return_call or ref.func instruction.
type CallSite struct {
	Caller *Function
	Callee *Function
	// Range covers the callee's name or index at the call site.
	Range Range
}

// CallSites returns every resolvable call site in tree in source order.
// References outside function bodies, such as exports and elem segments,
// are not call sites.
func CallSites(tree syntax.Tree, src []byte, st *SymbolTable) []CallSite {
	if st == nil {
		return nil
	}
	var sites []CallSite
	Usages(tree, src, func(u Usage) {
		if u.Context != ContextCall || u.Owner < 0 {
			return
		}
		t := ResolveUsage(u, st, src)
		if t == nil || t.Kind != TargetFunction {
			return
		}
		caller := functionAt(st, u.Owner)
		callee := st.Functions.At(t.Index)
		if caller == nil || callee == nil {
			return
		}
		sites = append(sites, CallSite{Caller: caller, Callee: callee, Range: nodeRange(u.Token)})
	})
	return sites
}
