// scope.go — static scope analysis over the parse tree.
//
// Fills each FuncDef's Variables (names assigned in the body and therefore
// local), LocalCaptures (free names bound by an enclosing function; they
// become shared cells at definition time), and GlobalCaptures (names
// declared `global`). A name captured from two scopes out is relayed: every
// intermediate function captures it too, so the cell threads through.
//
// Names that are free and bound nowhere in the function chain are left to
// dynamic resolution (module globals, then builtins) by the Variable
// opcode, so they need no capture entry.

package talon

import "sort"

// funcScope is the per-function analysis state.
type funcScope struct {
	def   *FuncDef
	bound map[string]bool // params + locals + already-relayed captures
	caps  map[string]bool
}

func (s *funcScope) addCapture(name string) {
	if !s.caps[name] {
		s.caps[name] = true
		s.bound[name] = true
	}
}

// analyzeTopLevel analyzes every function defined at module level. Module
// level itself has no locals: top-level assignment writes module globals.
func analyzeTopLevel(body []Stmt) error {
	var err error
	walkFunctions(body, func(def *FuncDef) {
		if err == nil {
			err = analyzeFunc(def, nil)
		}
	})
	return err
}

// analyzeFunc resolves the scope of one function, recursing into nested
// functions with this scope appended to the enclosing chain.
func analyzeFunc(def *FuncDef, enclosing []*funcScope) error {
	assigned := map[string]bool{}
	globals := map[string]bool{}
	nonlocals := map[string]bool{}
	collectAssigned(def.Body, assigned)
	collectDeclarations(def.Body, globals, nonlocals)

	for _, n := range def.Parameters {
		if globals[n.Name] || nonlocals[n.Name] {
			return &ParseError{Msg: "parameter '" + n.Name + "' declared global or nonlocal"}
		}
	}

	scope := &funcScope{def: def, bound: map[string]bool{}, caps: map[string]bool{}}
	for _, p := range def.Parameters {
		scope.bound[p.Name] = true
	}
	if def.ListArgs != "" {
		scope.bound[def.ListArgs] = true
	}
	if def.KwArgs != "" {
		scope.bound[def.KwArgs] = true
	}

	var locals []string
	for name := range assigned {
		if globals[name] || nonlocals[name] || scope.bound[name] {
			continue
		}
		locals = append(locals, name)
		scope.bound[name] = true
	}
	sort.Strings(locals)
	def.Variables = locals

	// Nonlocal names must resolve to a binding in an enclosing function.
	for name := range nonlocals {
		if !captureFrom(enclosing, name) {
			return &ParseError{Msg: "no binding for nonlocal '" + name + "' found"}
		}
		scope.addCapture(name)
	}

	// Free references resolve against the enclosing chain.
	chain := append(append([]*funcScope(nil), enclosing...), scope)
	var err error
	visitReferences(def.Body, func(name string) {
		if scope.bound[name] || globals[name] {
			return
		}
		if captureFrom(enclosing, name) {
			scope.addCapture(name)
		}
	}, func(nested *FuncDef) {
		if err == nil {
			err = analyzeFunc(nested, chain)
		}
	})
	if err != nil {
		return err
	}

	caps := make([]string, 0, len(scope.caps))
	for name := range scope.caps {
		caps = append(caps, name)
	}
	sort.Strings(caps)
	def.LocalCaptures = caps

	decls := make([]string, 0, len(globals))
	for name := range globals {
		decls = append(decls, name)
	}
	sort.Strings(decls)
	def.GlobalCaptures = decls
	return nil
}

// captureFrom finds the innermost enclosing scope binding name and relays
// the capture through every scope between it and the requester.
func captureFrom(enclosing []*funcScope, name string) bool {
	for i := len(enclosing) - 1; i >= 0; i-- {
		if enclosing[i].bound[name] {
			for j := i + 1; j < len(enclosing); j++ {
				enclosing[j].addCapture(name)
			}
			return true
		}
	}
	return false
}

// -----------------------------
// Tree walks
// -----------------------------

// collectAssigned gathers every name the statements bind, without entering
// nested function bodies (their assignments are their own locals).
func collectAssigned(body []Stmt, out map[string]bool) {
	addTarget := func(t *AssignTarget) {
		if t == nil {
			return
		}
		switch t.Type {
		case AssignDirect:
			out[t.Direct] = true
		case AssignPack:
			for _, slot := range t.Pack {
				out[slot.Name] = true
			}
		}
	}
	var walkExpr func(e *Expr)
	walkExpr = func(e *Expr) {
		if e == nil {
			return
		}
		switch e.Op {
		case OpAssign, OpCompoundAssign:
			addTarget(e.AssignTarget)
		case OpFunction:
			if e.Def.Name != "<lambda>" {
				out[e.Def.Name] = true
			}
			// Default expressions evaluate in the defining scope.
			for _, d := range e.Def.Defaults {
				walkExpr(d)
			}
			return
		case OpListComp:
			out[e.ListComp.ListName] = true
			collectAssigned(e.ListComp.ForBody, out)
			return
		}
		for _, c := range e.Children {
			walkExpr(c)
		}
	}

	for _, s := range body {
		switch stmt := s.(type) {
		case *ExprStmt:
			walkExpr(stmt.Expr)
		case *IfStmt:
			walkExpr(stmt.Cond)
			collectAssigned(stmt.Body, out)
			collectAssigned(stmt.Else, out)
		case *WhileStmt:
			walkExpr(stmt.Cond)
			collectAssigned(stmt.Body, out)
			collectAssigned(stmt.Else, out)
		case *ReturnStmt:
			walkExpr(stmt.Value)
		case *RaiseStmt:
			walkExpr(stmt.Value)
		case *DefStmt:
			out[stmt.Fn.Def.Name] = true
			for _, d := range stmt.Fn.Def.Defaults {
				walkExpr(d)
			}
		case *ClassStmt:
			out[stmt.Name] = true
			for _, b := range stmt.Bases {
				walkExpr(b)
			}
		case *TryStmt:
			collectAssigned(stmt.Body, out)
			for _, ex := range stmt.Excepts {
				if ex.Variable != "" {
					out[ex.Variable] = true
				}
				walkExpr(ex.Type)
				collectAssigned(ex.Body, out)
			}
			collectAssigned(stmt.Finally, out)
		case *ImportStmt:
			if stmt.Alias != "" {
				out[stmt.Alias] = true
			} else {
				out[stmt.Module] = true
			}
		case *ImportFromStmt:
			if stmt.Alias != "" {
				out[stmt.Alias] = true
			} else {
				for _, n := range stmt.Names {
					out[n] = true
				}
			}
		}
	}
}

// collectDeclarations gathers global/nonlocal declarations at this function
// level (nested functions declare for themselves).
func collectDeclarations(body []Stmt, globals, nonlocals map[string]bool) {
	for _, s := range body {
		switch stmt := s.(type) {
		case *GlobalStmt:
			for _, n := range stmt.Names {
				globals[n] = true
			}
		case *NonlocalStmt:
			for _, n := range stmt.Names {
				nonlocals[n] = true
			}
		case *IfStmt:
			collectDeclarations(stmt.Body, globals, nonlocals)
			collectDeclarations(stmt.Else, globals, nonlocals)
		case *WhileStmt:
			collectDeclarations(stmt.Body, globals, nonlocals)
			collectDeclarations(stmt.Else, globals, nonlocals)
		case *TryStmt:
			collectDeclarations(stmt.Body, globals, nonlocals)
			for _, ex := range stmt.Excepts {
				collectDeclarations(ex.Body, globals, nonlocals)
			}
			collectDeclarations(stmt.Finally, globals, nonlocals)
		}
	}
}

// visitReferences reports every variable reference at this function level
// and hands nested function definitions to onFunc instead of descending.
func visitReferences(body []Stmt, onRef func(name string), onFunc func(def *FuncDef)) {
	var walkExpr func(e *Expr)
	walkExpr = func(e *Expr) {
		if e == nil {
			return
		}
		switch e.Op {
		case OpVariable:
			onRef(e.VariableName)
			return
		case OpFunction:
			for _, d := range e.Def.Defaults {
				walkExpr(d)
			}
			onFunc(e.Def)
			return
		case OpListComp:
			visitReferences(e.ListComp.ForBody, onRef, onFunc)
			return
		}
		for _, c := range e.Children {
			walkExpr(c)
		}
	}
	for _, s := range body {
		switch stmt := s.(type) {
		case *ExprStmt:
			walkExpr(stmt.Expr)
		case *IfStmt:
			walkExpr(stmt.Cond)
			visitReferences(stmt.Body, onRef, onFunc)
			visitReferences(stmt.Else, onRef, onFunc)
		case *WhileStmt:
			walkExpr(stmt.Cond)
			visitReferences(stmt.Body, onRef, onFunc)
			visitReferences(stmt.Else, onRef, onFunc)
		case *ReturnStmt:
			walkExpr(stmt.Value)
		case *RaiseStmt:
			walkExpr(stmt.Value)
		case *DefStmt:
			for _, d := range stmt.Fn.Def.Defaults {
				walkExpr(d)
			}
			onFunc(stmt.Fn.Def)
		case *ClassStmt:
			for _, b := range stmt.Bases {
				walkExpr(b)
			}
			for _, m := range stmt.Methods {
				for _, d := range m.Def.Defaults {
					walkExpr(d)
				}
				onFunc(m.Def)
			}
		case *TryStmt:
			visitReferences(stmt.Body, onRef, onFunc)
			for _, ex := range stmt.Excepts {
				walkExpr(ex.Type)
				visitReferences(ex.Body, onRef, onFunc)
			}
			visitReferences(stmt.Finally, onRef, onFunc)
		}
	}
}

// walkFunctions visits every function defined directly at this level.
func walkFunctions(body []Stmt, onFunc func(def *FuncDef)) {
	visitReferences(body, func(string) {}, onFunc)
}
