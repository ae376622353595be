// Package dsl lexes and parses the Cypher-subset query language
// (spec.md §1-2) into internal/ast's tree; internal/qgraph and
// internal/plan take it from there.
package dsl

import (
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var dslLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `//[^\n]*`},
	{Name: "Keyword", Pattern: `(?i)\b(OPTIONAL|MATCH|WHERE|WITH|UNWIND|AS|CALL|YIELD|RETURN|DISTINCT|ORDER|BY|ASC|DESC|SKIP|LIMIT|AND|XOR|OR|NOT|STARTS|ENDS|CONTAINS|IN|IS|NULL|TRUE|FALSE|CREATE|MERGE|DETACH|DELETE|SET|REMOVE)\b`},
	{Name: "Param", Pattern: `\$[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Float", Pattern: `\d+\.\d+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "String", Pattern: `"([^"\\]|\\.)*"|'([^'\\]|\\.)*'`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
	{Name: "Op", Pattern: `<>|<=|>=|\.\.|->|<-|[=<>+\-*/%^.,:;(){}\[\]|]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// QueryAST is the top-level grammar node: a chain of reading clauses
// followed by an optional terminal RETURN.
type QueryAST struct {
	Clauses []*ClauseAST `parser:"@@*"`
	Return  *ReturnAST   `parser:"@@?"`
}

// ClauseAST dispatches on the clause's leading keyword.
type ClauseAST struct {
	Match  *MatchAST  `parser:"  @@"`
	With   *WithAST   `parser:"| @@"`
	Unwind *UnwindAST `parser:"| @@"`
	Call   *CallAST   `parser:"| @@"`
	Write  *WriteAST  `parser:"| @@"`
}

// MatchAST: `(OPTIONAL)? MATCH <pattern> (, <pattern>)* (WHERE <expr>)?`
type MatchAST struct {
	Optional bool              `parser:"@\"OPTIONAL\"?"`
	Patterns []*PatternPathAST `parser:"\"MATCH\" @@ ( \",\" @@ )*"`
	Where    *ExprAST          `parser:"( \"WHERE\" @@ )?"`
}

// WithAST: `WITH (DISTINCT)? <items> (WHERE <expr>)? (ORDER BY ..)? (SKIP ..)? (LIMIT ..)?`
type WithAST struct {
	Distinct bool             `parser:"\"WITH\" @\"DISTINCT\"?"`
	Items    []*ProjectionAST `parser:"@@ ( \",\" @@ )*"`
	Where    *ExprAST         `parser:"( \"WHERE\" @@ )?"`
	OrderBy  []*OrderItemAST  `parser:"( \"ORDER\" \"BY\" @@ ( \",\" @@ )* )?"`
	Skip     *ExprAST         `parser:"( \"SKIP\" @@ )?"`
	Limit    *ExprAST         `parser:"( \"LIMIT\" @@ )?"`
}

// UnwindAST: `UNWIND <expr> AS <alias>`
type UnwindAST struct {
	List  *ExprAST `parser:"\"UNWIND\" @@"`
	Alias string   `parser:"\"AS\" @Ident"`
}

// CallAST: `CALL <name.parts>(<args>) (YIELD <cols>)?`
type CallAST struct {
	Name  []string   `parser:"\"CALL\" @Ident ( \".\" @Ident )*"`
	Args  []*ExprAST `parser:"\"(\" ( @@ ( \",\" @@ )* )? \")\""`
	Yield []string   `parser:"( \"YIELD\" @Ident ( \",\" @Ident )* )?"`
}

// WriteAST is a stub: CREATE/MERGE/SET/DELETE/REMOVE parse their usual
// shapes but are always rejected at plan time (spec.md: the engine is
// read-only). Its body only needs to be consumed, not interpreted.
type WriteAST struct {
	Detach  bool            `parser:"@\"DETACH\"?"`
	Keyword string          `parser:"@( \"CREATE\" | \"MERGE\" | \"SET\" | \"DELETE\" | \"REMOVE\" )"`
	Terms   []*WriteTermAST `parser:"@@ ( \",\" @@ )*"`
}

type WriteTermAST struct {
	Pattern *PatternPathAST `parser:"  @@"`
	Assign  *WriteAssignAST `parser:"| @@"`
	Var     *string         `parser:"| @Ident"`
}

// WriteAssignAST: `alias.prop (= expr)?` — covers both SET's
// assignment form and REMOVE's bare property reference.
type WriteAssignAST struct {
	Alias    string   `parser:"@Ident \".\""`
	Property string   `parser:"@Ident"`
	Value    *ExprAST `parser:"( \"=\" @@ )?"`
}

// ReturnAST: `RETURN (DISTINCT)? <items> (ORDER BY ..)? (SKIP ..)? (LIMIT ..)?`
type ReturnAST struct {
	Distinct bool             `parser:"\"RETURN\" @\"DISTINCT\"?"`
	Items    []*ProjectionAST `parser:"@@ ( \",\" @@ )*"`
	OrderBy  []*OrderItemAST  `parser:"( \"ORDER\" \"BY\" @@ ( \",\" @@ )* )?"`
	Skip     *ExprAST         `parser:"( \"SKIP\" @@ )?"`
	Limit    *ExprAST         `parser:"( \"LIMIT\" @@ )?"`
}

// ProjectionAST: `*` or `<expr> (AS <alias>)?`
type ProjectionAST struct {
	Star  bool     `parser:"  @\"*\""`
	Expr  *ExprAST `parser:"| @@"`
	Alias string   `parser:"  ( \"AS\" @Ident )?"`
}

// OrderItemAST: `<expr> (ASC|DESC)?`
type OrderItemAST struct {
	Expr *ExprAST `parser:"@@"`
	Asc  bool     `parser:"( @\"ASC\""`
	Desc bool     `parser:"| @\"DESC\" )?"`
}

// --- patterns --------------------------------------------------------------

// PatternPathAST: `<node> (<rel> <node>)*`
type PatternPathAST struct {
	First *NodePatternAST   `parser:"@@"`
	Steps []*PatternStepAST `parser:"@@*"`
}

type PatternStepAST struct {
	Rel  *RelPatternAST  `parser:"@@"`
	Node *NodePatternAST `parser:"@@"`
}

// NodePatternAST: `(alias? :Label1 :Label2 {props}?)`
type NodePatternAST struct {
	Alias  string     `parser:"\"(\" @Ident?"`
	Labels []string   `parser:"( \":\" @Ident )*"`
	Props  []*PropAST `parser:"( \"{\" ( @@ ( \",\" @@ )* )? \"}\" )? \")\""`
}

// RelPatternAST: `-[alias? :TYPE1|TYPE2 *min..max {props}?]->`, `<-...-`
// or `--` for either direction.
type RelPatternAST struct {
	Left  bool        `parser:"@\"<\"?"`
	_     string      `parser:"\"-\""`
	Body  *RelBodyAST `parser:"( \"[\" @@ \"]\" )?"`
	_     string      `parser:"\"-\""`
	Right bool        `parser:"@\">\"?"`
}

type RelBodyAST struct {
	Alias  string        `parser:"@Ident?"`
	Types  []string      `parser:"( \":\" @Ident ( \"|\" @Ident )* )?"`
	VarLen *VarLengthAST `parser:"@@?"`
	Props  []*PropAST    `parser:"( \"{\" ( @@ ( \",\" @@ )* )? \"}\" )?"`
}

// VarLengthAST: `*`, `*3`, `*1..5`, `*..5`, `*3..`
type VarLengthAST struct {
	Min   *int `parser:"\"*\" @Int?"`
	Range bool `parser:"( @\"..\""`
	Max   *int `parser:"  @Int? )?"`
}

// PropAST: `key: <expr>`, used both for node/relationship literal
// properties and SET assignments.
type PropAST struct {
	Key   string   `parser:"@Ident \":\""`
	Value *ExprAST `parser:"@@"`
}

// --- expressions (precedence climbing, lowest to highest) ------------------

// ExprAST is the OR level, the entry point for every expression.
type ExprAST struct {
	Left *XorExprAST `parser:"@@"`
	Ops  []*OrRhsAST `parser:"@@*"`
}

type OrRhsAST struct {
	Op    string      `parser:"@\"OR\""`
	Right *XorExprAST `parser:"@@"`
}

type XorExprAST struct {
	Left *AndExprAST  `parser:"@@"`
	Ops  []*XorRhsAST `parser:"@@*"`
}

type XorRhsAST struct {
	Op    string      `parser:"@\"XOR\""`
	Right *AndExprAST `parser:"@@"`
}

type AndExprAST struct {
	Left *NotExprAST  `parser:"@@"`
	Ops  []*AndRhsAST `parser:"@@*"`
}

type AndRhsAST struct {
	Op    string      `parser:"@\"AND\""`
	Right *NotExprAST `parser:"@@"`
}

// NotExprAST: zero or more NOTs over a comparison.
type NotExprAST struct {
	Nots []string       `parser:"@\"NOT\"*"`
	Expr *ComparisonAST `parser:"@@"`
}

// ComparisonAST: `<additive> (IS (NOT)? NULL)? (<cmp-op> <additive>)?`
type ComparisonAST struct {
	Left   *AdditiveAST      `parser:"@@"`
	IsNull *IsNullRhsAST     `parser:"@@?"`
	Rhs    *ComparisonRhsAST `parser:"@@?"`
}

type IsNullRhsAST struct {
	Negated bool   `parser:"\"IS\" @\"NOT\"?"`
	_       string `parser:"\"NULL\""`
}

type ComparisonRhsAST struct {
	Op    *CompOpAST   `parser:"@@"`
	Right *AdditiveAST `parser:"@@"`
}

// CompOpAST is which comparator matched; STARTS WITH / ENDS WITH are
// two-keyword operators, so their own alternative consumes both tokens.
type CompOpAST struct {
	Eq         bool `parser:"  @\"=\""`
	Ne         bool `parser:"| @\"<>\""`
	Le         bool `parser:"| @\"<=\""`
	Ge         bool `parser:"| @\">=\""`
	Lt         bool `parser:"| @\"<\""`
	Gt         bool `parser:"| @\">\""`
	In         bool `parser:"| @\"IN\""`
	Contains   bool `parser:"| @\"CONTAINS\""`
	StartsWith bool `parser:"| @\"STARTS\" \"WITH\""`
	EndsWith   bool `parser:"| @\"ENDS\" \"WITH\""`
}

type AdditiveAST struct {
	Left *MultiplicativeAST `parser:"@@"`
	Ops  []*AdditiveRhsAST  `parser:"@@*"`
}

type AdditiveRhsAST struct {
	Op    string             `parser:"@( \"+\" | \"-\" )"`
	Right *MultiplicativeAST `parser:"@@"`
}

type MultiplicativeAST struct {
	Left *PowerAST               `parser:"@@"`
	Ops  []*MultiplicativeRhsAST `parser:"@@*"`
}

type MultiplicativeRhsAST struct {
	Op    string    `parser:"@( \"*\" | \"/\" | \"%\" )"`
	Right *PowerAST `parser:"@@"`
}

type PowerAST struct {
	Left *UnaryAST      `parser:"@@"`
	Ops  []*PowerRhsAST `parser:"@@*"`
}

type PowerRhsAST struct {
	Op    string    `parser:"@\"^\""`
	Right *UnaryAST `parser:"@@"`
}

// UnaryAST: optional unary minus over a postfix expression.
type UnaryAST struct {
	Neg  bool        `parser:"@\"-\"?"`
	Expr *PostfixAST `parser:"@@"`
}

// PostfixAST: an atom followed by zero or more `.prop` or `[index]`
// suffixes.
type PostfixAST struct {
	Atom   *AtomAST     `parser:"@@"`
	Suffix []*SuffixAST `parser:"@@*"`
}

type SuffixAST struct {
	Property *string   `parser:"  \".\" @Ident"`
	Index    *IndexAST `parser:"| \"[\" @@ \"]\""`
}

// IndexAST: `<expr>` (single index) or `<expr>? .. <expr>?` (slice).
type IndexAST struct {
	From  *ExprAST `parser:"@@?"`
	Slice bool     `parser:"@\"..\"?"`
	To    *ExprAST `parser:"@@?"`
}

// AtomAST is the leaf of the expression grammar: literals, parameters,
// variables, function calls, parenthesized expressions and list
// literals.
type AtomAST struct {
	Null  bool         `parser:"  @\"NULL\""`
	True  bool         `parser:"| @\"TRUE\""`
	False bool         `parser:"| @\"FALSE\""`
	Str   *string      `parser:"| @String"`
	Float *float64     `parser:"| @Float"`
	Int   *int64       `parser:"| @Int"`
	Param *string      `parser:"| @Param"`
	Call  *FuncCallAST `parser:"| @@"`
	Ident *string      `parser:"| @Ident"`
	Paren *ExprAST     `parser:"| \"(\" @@ \")\""`
	List  []*ExprAST   `parser:"| \"[\" ( @@ ( \",\" @@ )* )? \"]\""`
}

// FuncCallAST: `name ( (DISTINCT)? args )` or `name(*)`.
type FuncCallAST struct {
	Name     string     `parser:"@Ident \"(\""`
	Distinct bool       `parser:"@\"DISTINCT\"?"`
	Star     bool       `parser:"  @\"*\""`
	Args     []*ExprAST `parser:"| ( @@ ( \",\" @@ )* )?"`
	_        string     `parser:"\")\""`
}

var dslParser = participle.MustBuild[QueryAST](
	participle.Lexer(dslLexer),
	participle.CaseInsensitive("Keyword"),
	participle.Elide("Whitespace", "Comment"),
	participle.UseLookahead(4),
)
