package sandbox

import (
	"go.starlark.net/syntax"

	sandboxast "agentrt/ast"
)

// TranslateFile converts a parsed Starlark syntax tree into the
// language-neutral shapes package ast defines, so the analyzer (C2)
// never has to know it is looking at Starlark specifically.
func TranslateFile(file *syntax.File) sandboxast.Block {
	stmts := make([]sandboxast.Node, 0, len(file.Stmts))
	for _, stmt := range file.Stmts {
		stmts = append(stmts, translateStmt(stmt))
	}
	return sandboxast.Block{Stmts: stmts}
}

func translateStmt(stmt syntax.Stmt) sandboxast.Node {
	switch s := stmt.(type) {
	case *syntax.DefStmt:
		return sandboxast.Form{Kind: sandboxast.FormFunctionDef}
	case *syntax.LoadStmt:
		return sandboxast.Form{Kind: sandboxast.FormImport}
	case *syntax.ExprStmt:
		return translateExpr(s.X)
	case *syntax.AssignStmt:
		return sandboxast.Block{Stmts: []sandboxast.Node{translateExpr(s.LHS), translateExpr(s.RHS)}}
	case *syntax.ReturnStmt:
		if s.Result == nil {
			return sandboxast.Literal{}
		}
		return translateExpr(s.Result)
	case *syntax.IfStmt:
		return translateBranch(s.True, s.False)
	case *syntax.ForStmt:
		return translateBody(s.Body)
	case *syntax.WhileStmt:
		return translateBody(s.Body)
	default:
		return sandboxast.Literal{}
	}
}

func translateBranch(trueBody, falseBody []syntax.Stmt) sandboxast.Node {
	stmts := make([]sandboxast.Node, 0, len(trueBody)+len(falseBody))
	for _, s := range trueBody {
		stmts = append(stmts, translateStmt(s))
	}
	for _, s := range falseBody {
		stmts = append(stmts, translateStmt(s))
	}
	return sandboxast.Block{Stmts: stmts}
}

func translateBody(body []syntax.Stmt) sandboxast.Node {
	stmts := make([]sandboxast.Node, 0, len(body))
	for _, s := range body {
		stmts = append(stmts, translateStmt(s))
	}
	return sandboxast.Block{Stmts: stmts}
}

// translateExpr walks an expression that is not itself the callee
// position of a CallExpr. A bare reference to a remote or local
// function name — `f = string.upper` or `f = apply` — is exactly the
// function-capture pattern (`&Mod.fun/arity`, `&fun/arity`) the source
// system guards against, so Ident and DotExpr both translate to
// Capture here rather than being treated as inert data. The only
// place a DotExpr or Ident is treated as a direct Call is inside
// translateCall, which intercepts the callee position before
// translateExpr ever sees it.
func translateExpr(expr syntax.Expr) sandboxast.Node {
	switch e := expr.(type) {
	case *syntax.CallExpr:
		return translateCall(e)
	case *syntax.Ident:
		return sandboxast.Capture{Local: e.Name, Arity: -1}
	case *syntax.DotExpr:
		return translateCaptureDot(e)
	case *syntax.BinaryExpr:
		return sandboxast.Block{Stmts: []sandboxast.Node{translateExpr(e.X), translateExpr(e.Y)}}
	case *syntax.UnaryExpr:
		return translateExpr(e.X)
	case *syntax.ParenExpr:
		return translateExpr(e.X)
	case *syntax.Literal:
		return sandboxast.Literal{Value: e.Value}
	case *syntax.ListExpr:
		stmts := make([]sandboxast.Node, 0, len(e.List))
		for _, item := range e.List {
			stmts = append(stmts, translateExpr(item))
		}
		return sandboxast.Block{Stmts: stmts}
	case *syntax.TupleExpr:
		stmts := make([]sandboxast.Node, 0, len(e.List))
		for _, item := range e.List {
			stmts = append(stmts, translateExpr(item))
		}
		return sandboxast.Block{Stmts: stmts}
	default:
		return sandboxast.Literal{}
	}
}

func translateCaptureDot(dot *syntax.DotExpr) sandboxast.Node {
	if moduleIdent, ok := dot.X.(*syntax.Ident); ok {
		return sandboxast.Capture{
			Callee:   calleeFor(moduleIdent.Name),
			Function: dot.Name.Name,
			Arity:    -1,
		}
	}
	return translateExpr(dot.X)
}

func translateCall(call *syntax.CallExpr) sandboxast.Node {
	args := make([]sandboxast.Node, 0, len(call.Args))
	for _, arg := range call.Args {
		args = append(args, translateExpr(arg))
	}

	switch fn := call.Fn.(type) {
	case *syntax.DotExpr:
		if moduleIdent, ok := fn.X.(*syntax.Ident); ok {
			return sandboxast.Call{
				Callee:   calleeFor(moduleIdent.Name),
				Function: fn.Name.Name,
				Args:     args,
			}
		}
		return sandboxast.Block{Stmts: append([]sandboxast.Node{translateExpr(fn.X)}, args...)}
	case *syntax.Ident:
		return sandboxast.Local{Name: fn.Name, Args: args}
	default:
		return sandboxast.Block{Stmts: args}
	}
}

// calleeFor produces a Callee naming moduleOrAlias. Whether it is an
// alias or a direct module reference is ambiguous at translation
// time; Analyze resolves an injected alias map against the name
// before falling back to treating it as a direct module name.
func calleeFor(moduleOrAlias string) sandboxast.Callee {
	return sandboxast.Callee{Alias: sandboxast.AliasPath{moduleOrAlias}}
}
