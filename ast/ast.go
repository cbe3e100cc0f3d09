// Package ast defines the language-neutral AST node shapes the
// sandbox analyzer and evaluator operate on (§6). A parser adapter
// (package sandbox) is responsible for translating a concrete syntax
// tree — Starlark's, in this runtime — into these shapes before
// analysis ever sees it.
package ast

// Node is the closed set of AST shapes the analyzer discriminates on.
type Node interface {
	isNode()
}

// ModuleRef names a remote module a Call targets directly, as opposed
// to through an alias path.
type ModuleRef struct {
	Name string
}

// AliasPath is a dotted alias reference resolved against an injected
// alias → full_module map before authorization runs.
type AliasPath []string

// Callee is the union of ways a Call may name its target: exactly one
// of Module or Alias is set.
type Callee struct {
	Module *ModuleRef
	Alias  AliasPath
}

// Call is a remote or aliased-remote call: `module.function(args...)`.
type Call struct {
	Callee   Callee
	Function string
	Args     []Node
}

func (Call) isNode() {}

// Local is a call to the implicit local/core namespace: `function(args...)`
// with no module qualifier.
type Local struct {
	Name string
	Args []Node
}

func (Local) isNode() {}

// Capture is a function reference (`&Mod.fun/arity`, `&fun/arity`)
// treated as a call of the referenced target for authorization
// purposes — the analyzer must not let captures bypass the checks it
// applies to direct calls. Exactly one of Callee (with Function set)
// or Local is populated, mirroring the two forms a capture may take.
type Capture struct {
	Callee   Callee
	Function string
	Local    string
	Arity    int
}

func (Capture) isNode() {}

// FormKind enumerates the blocked syntactic forms and definition forms
// the analyzer rejects regardless of allowlist.
type FormKind string

const (
	FormReceive          FormKind = "receive"
	FormImport           FormKind = "import"
	FormRequire          FormKind = "require"
	FormAlias            FormKind = "alias"
	FormModuleDefinition FormKind = "module_definition"
	FormFunctionDef      FormKind = "function_definition"
	FormMacroDef         FormKind = "macro_definition"
	FormStructDef        FormKind = "struct_definition"
	FormProtocolDef      FormKind = "protocol_definition"
	FormImplDef          FormKind = "impl_definition"
)

// Form marks a syntactic construct the analyzer rejects by tag alone,
// independent of any allowlist decision. Sandbox-injected alias forms
// (see the Block doc) are represented separately and are exempt.
type Form struct {
	Kind FormKind
}

func (Form) isNode() {}

// InjectedAlias introduces one alias binding. It is produced only by
// the sandbox's own alias-injection step (§4.3) and is therefore
// exempt from the "alias is a blocked form" rule that applies to
// user-authored Form{Kind: FormAlias} nodes.
type InjectedAlias struct {
	Short string
	Full  string
}

func (InjectedAlias) isNode() {}

// Block is a top-level sequence of statements, used both for ordinary
// program bodies and as the wrapper the sandbox injects around user
// code to introduce alias bindings ahead of it.
type Block struct {
	Stmts []Node
}

func (Block) isNode() {}

// Literal is any node the analyzer treats as inert data with no
// authorization consequence: numbers, strings, collections literals,
// and similar. The evaluator interprets literal contents; the
// analyzer's default decision for non-call nodes is Ok, so Literal
// exists mainly to keep translated trees total.
type Literal struct {
	Value any
}

func (Literal) isNode() {}
