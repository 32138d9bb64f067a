package ast

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Print renders a Program back to Ash source text. It is not a full
// formatter -- only enough fidelity that Print(Parse(Print(Parse(src))))
// is stable, which is what the parser's round-trip invariant test
// checks: parse, unparse, parse again, compare.
func Print(p *Program) string {
	var b strings.Builder
	if p.Module != "" {
		fmt.Fprintf(&b, "module %s\n", p.Module)
	}
	for _, imp := range p.Imports {
		printImport(&b, imp, "")
	}
	printBlock(&b, p.Body, 0)
	return b.String()
}

func printImport(b *strings.Builder, imp *Import, ind string) {
	b.WriteString(ind)
	if imp.From != "" {
		fmt.Fprintf(b, "from %s import %s\n", imp.From, strings.Join(aliasedNames(imp), ", "))
		return
	}
	fmt.Fprintf(b, "import %s\n", strings.Join(aliasedNames(imp), ", "))
}

func aliasedNames(imp *Import) []string {
	out := make([]string, len(imp.Names))
	for i, n := range imp.Names {
		if i < len(imp.Aliases) && imp.Aliases[i] != "" {
			out[i] = n + " as " + imp.Aliases[i]
		} else {
			out[i] = n
		}
	}
	return out
}

func indent(n int) string { return strings.Repeat("    ", n) }

func printBlock(b *strings.Builder, stmts []Stmt, depth int) {
	if len(stmts) == 0 {
		fmt.Fprintf(b, "%spass\n", indent(depth))
		return
	}
	for _, s := range stmts {
		printStmt(b, s, depth)
	}
}

func printStmt(b *strings.Builder, s Stmt, depth int) {
	ind := indent(depth)
	switch st := s.(type) {
	case *Import:
		printImport(b, st, ind)
	case *FuncDecl:
		for _, dec := range st.Decorators {
			fmt.Fprintf(b, "%s@%s\n", ind, PrintExpr(dec))
		}
		prefix := ""
		if st.IsAsync {
			prefix = "async "
		}
		ret := ""
		if st.ReturnType != nil {
			ret = " -> " + st.ReturnType.String()
		}
		fmt.Fprintf(b, "%s%sdef %s(%s)%s:\n", ind, prefix, st.Name, printParams(st.Params), ret)
		printBlock(b, st.Body, depth+1)
	case *ClassDecl:
		bases := ""
		if len(st.Bases) > 0 {
			bases = "(" + strings.Join(st.Bases, ", ") + ")"
		}
		fmt.Fprintf(b, "%sclass %s%s:\n", ind, st.Name, bases)
		printBlock(b, st.Body, depth+1)
	case *Assign:
		targets := make([]string, len(st.Targets))
		for i, t := range st.Targets {
			targets[i] = PrintExpr(t)
		}
		fmt.Fprintf(b, "%s%s = %s\n", ind, strings.Join(targets, " = "), PrintExpr(st.Value))
	case *AugAssign:
		fmt.Fprintf(b, "%s%s %s= %s\n", ind, PrintExpr(st.Target), st.Op, PrintExpr(st.Value))
	case *ExprStmt:
		fmt.Fprintf(b, "%s%s\n", ind, PrintExpr(st.X))
	case *Return:
		if st.Value == nil {
			fmt.Fprintf(b, "%sreturn\n", ind)
		} else {
			fmt.Fprintf(b, "%sreturn %s\n", ind, PrintExpr(st.Value))
		}
	case *Raise:
		switch {
		case st.Exc == nil:
			fmt.Fprintf(b, "%sraise\n", ind)
		case st.Cause != nil:
			fmt.Fprintf(b, "%sraise %s from %s\n", ind, PrintExpr(st.Exc), PrintExpr(st.Cause))
		default:
			fmt.Fprintf(b, "%sraise %s\n", ind, PrintExpr(st.Exc))
		}
	case *If:
		fmt.Fprintf(b, "%sif %s:\n", ind, PrintExpr(st.Cond))
		printBlock(b, st.Then, depth+1)
		if st.Else != nil {
			fmt.Fprintf(b, "%selse:\n", ind)
			printBlock(b, st.Else, depth+1)
		}
	case *For:
		prefix := ""
		if st.IsAsync {
			prefix = "async "
		}
		fmt.Fprintf(b, "%s%sfor %s in %s:\n", ind, prefix, PrintExpr(st.Target), PrintExpr(st.Iter))
		printBlock(b, st.Body, depth+1)
		if st.OrElse != nil {
			fmt.Fprintf(b, "%selse:\n", ind)
			printBlock(b, st.OrElse, depth+1)
		}
	case *While:
		fmt.Fprintf(b, "%swhile %s:\n", ind, PrintExpr(st.Cond))
		printBlock(b, st.Body, depth+1)
		if st.OrElse != nil {
			fmt.Fprintf(b, "%selse:\n", ind)
			printBlock(b, st.OrElse, depth+1)
		}
	case *TryExcept:
		fmt.Fprintf(b, "%stry:\n", ind)
		printBlock(b, st.Body, depth+1)
		for _, ex := range st.Excepts {
			if ex.Type == nil {
				fmt.Fprintf(b, "%sexcept:\n", ind)
			} else if ex.Name != "" {
				fmt.Fprintf(b, "%sexcept %s as %s:\n", ind, ex.Type.String(), ex.Name)
			} else {
				fmt.Fprintf(b, "%sexcept %s:\n", ind, ex.Type.String())
			}
			printBlock(b, ex.Body, depth+1)
		}
		if st.OrElse != nil {
			fmt.Fprintf(b, "%selse:\n", ind)
			printBlock(b, st.OrElse, depth+1)
		}
		if st.Finally != nil {
			fmt.Fprintf(b, "%sfinally:\n", ind)
			printBlock(b, st.Finally, depth+1)
		}
	case *With:
		prefix := ""
		if st.IsAsync {
			prefix = "async "
		}
		fmt.Fprintf(b, "%s%swith %s:\n", ind, prefix, printWithItems(st.Items))
		printBlock(b, st.Body, depth+1)
	case *Pass:
		fmt.Fprintf(b, "%spass\n", ind)
	case *Break:
		fmt.Fprintf(b, "%sbreak\n", ind)
	case *Continue:
		fmt.Fprintf(b, "%scontinue\n", ind)
	case *Global:
		fmt.Fprintf(b, "%sglobal %s\n", ind, strings.Join(st.Names, ", "))
	case *Nonlocal:
		fmt.Fprintf(b, "%snonlocal %s\n", ind, strings.Join(st.Names, ", "))
	default:
		fmt.Fprintf(b, "%s<?>\n", ind)
	}
}

func printWithItems(items []*WithItem) string {
	parts := make([]string, len(items))
	for i, it := range items {
		if it.Name != "" {
			parts[i] = PrintExpr(it.Ctx) + " as " + it.Name
		} else {
			parts[i] = PrintExpr(it.Ctx)
		}
	}
	return strings.Join(parts, ", ")
}

func printParams(params []*Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		name := p.Name
		if p.IsVararg {
			name = "*" + name
		}
		if p.IsKwarg {
			name = "**" + name
		}
		if p.Type != nil {
			name += ": " + p.Type.String()
		}
		if p.Default != nil {
			name += "=" + PrintExpr(p.Default)
		}
		parts[i] = name
	}
	return strings.Join(parts, ", ")
}

// PrintExpr renders a single expression back to source text.
func PrintExpr(e Expr) string {
	switch x := e.(type) {
	case *Ident:
		return x.Name
	case *IntLit:
		if x.Big != "" {
			return x.Big
		}
		return fmt.Sprintf("%d", x.Value)
	case *FloatLit:
		return printFloat(x.Value)
	case *ComplexLit:
		if x.Real != 0 {
			return fmt.Sprintf("(%s+%sj)", printFloat(x.Real), printFloat(x.Imag))
		}
		return strconv.FormatFloat(x.Imag, 'g', -1, 64) + "j"
	case *StringLit:
		return printString(x)
	case *FString:
		return printFString(x)
	case *BoolLit:
		if x.Value {
			return "True"
		}
		return "False"
	case *NoneLit:
		return "None"
	case *BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", PrintExpr(x.Left), x.Op, PrintExpr(x.Right))
	case *UnaryExpr:
		op := x.Op
		if op == "not" {
			op = "not "
		}
		return fmt.Sprintf("(%s%s)", op, PrintExpr(x.X))
	case *BoolOp:
		parts := make([]string, len(x.Operands))
		for i, o := range x.Operands {
			parts[i] = PrintExpr(o)
		}
		return "(" + strings.Join(parts, " "+x.Op+" ") + ")"
	case *Compare:
		var b strings.Builder
		b.WriteByte('(')
		b.WriteString(PrintExpr(x.Operands[0]))
		for i, op := range x.Ops {
			fmt.Fprintf(&b, " %s %s", op, PrintExpr(x.Operands[i+1]))
		}
		b.WriteByte(')')
		return b.String()
	case *CallExpr:
		return printCall(x)
	case *Attribute:
		return fmt.Sprintf("%s.%s", PrintExpr(x.X), x.Name)
	case *Subscript:
		return fmt.Sprintf("%s[%s]", PrintExpr(x.X), PrintExpr(x.Index))
	case *Slice:
		var b strings.Builder
		if x.Start != nil {
			b.WriteString(PrintExpr(x.Start))
		}
		b.WriteByte(':')
		if x.Stop != nil {
			b.WriteString(PrintExpr(x.Stop))
		}
		if x.Step != nil {
			b.WriteByte(':')
			b.WriteString(PrintExpr(x.Step))
		}
		return b.String()
	case *ListExpr:
		return "[" + printExprList(x.Elts) + "]"
	case *TupleExpr:
		if len(x.Elts) == 1 {
			return "(" + PrintExpr(x.Elts[0]) + ",)"
		}
		return "(" + printExprList(x.Elts) + ")"
	case *SetExpr:
		if len(x.Elts) == 0 {
			return "set()"
		}
		return "{" + printExprList(x.Elts) + "}"
	case *DictExpr:
		parts := make([]string, len(x.Entries))
		for i, entry := range x.Entries {
			if entry.Key == nil {
				parts[i] = "**" + PrintExpr(entry.Value)
			} else {
				parts[i] = PrintExpr(entry.Key) + ": " + PrintExpr(entry.Value)
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Starred:
		return "*" + PrintExpr(x.X)
	case *ListComp:
		return "[" + PrintExpr(x.Elt) + printClauses(x.Clauses) + "]"
	case *SetComp:
		return "{" + PrintExpr(x.Elt) + printClauses(x.Clauses) + "}"
	case *DictComp:
		return "{" + PrintExpr(x.Key) + ": " + PrintExpr(x.Value) + printClauses(x.Clauses) + "}"
	case *GeneratorExp:
		return "(" + PrintExpr(x.Elt) + printClauses(x.Clauses) + ")"
	case *IsInstance:
		return fmt.Sprintf("isinstance(%s, %s)", PrintExpr(x.X), x.Type.String())
	case *IfExp:
		return fmt.Sprintf("(%s if %s else %s)", PrintExpr(x.Then), PrintExpr(x.Cond), PrintExpr(x.Else))
	case *Lambda:
		return fmt.Sprintf("lambda %s: %s", printParams(x.Params), PrintExpr(x.Body))
	case *Await:
		return "await " + PrintExpr(x.X)
	case *Yield:
		if x.Value == nil {
			return "yield"
		}
		return "yield " + PrintExpr(x.Value)
	case *YieldFrom:
		return "yield from " + PrintExpr(x.X)
	default:
		return "<?>"
	}
}

func printExprList(elts []Expr) string {
	parts := make([]string, len(elts))
	for i, el := range elts {
		parts[i] = PrintExpr(el)
	}
	return strings.Join(parts, ", ")
}

func printCall(x *CallExpr) string {
	var parts []string
	for _, a := range x.Args {
		parts = append(parts, PrintExpr(a))
	}
	if x.StarArgs != nil {
		parts = append(parts, "*"+PrintExpr(x.StarArgs))
	}
	// Kwargs live in a map; sort the names so output is deterministic.
	names := make([]string, 0, len(x.Kwargs))
	for name := range x.Kwargs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+"="+PrintExpr(x.Kwargs[name]))
	}
	return fmt.Sprintf("%s(%s)", PrintExpr(x.Func), strings.Join(parts, ", "))
}

func printClauses(clauses []CompClause) string {
	var b strings.Builder
	for _, c := range clauses {
		if c.IsAsync {
			b.WriteString(" async")
		}
		fmt.Fprintf(&b, " for %s in %s", PrintExpr(c.Target), PrintExpr(c.Iter))
		for _, cond := range c.Ifs {
			b.WriteString(" if " + PrintExpr(cond))
		}
	}
	return b.String()
}

// printFloat renders a float so it re-lexes as a FLOAT token: %g output
// like "2" would come back as an integer literal, so a bare number gains a
// trailing ".0".
func printFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// printString re-quotes a literal. StringLit.Value holds the source
// content verbatim (escape sequences unprocessed), so the content goes
// back out untouched; only the quote style has to be chosen so the
// content's own quotes don't terminate the literal early.
func printString(x *StringLit) string {
	prefix := ""
	if x.IsRaw {
		prefix += "r"
	}
	if x.IsBytes {
		prefix += "b"
	}
	switch {
	case !strings.Contains(x.Value, `"`):
		return prefix + `"` + x.Value + `"`
	case !strings.Contains(x.Value, "'"):
		return prefix + "'" + x.Value + "'"
	default:
		return prefix + `"""` + x.Value + `"""`
	}
}

func printFString(x *FString) string {
	var content strings.Builder
	for _, part := range x.Parts {
		if part.Expr == nil {
			content.WriteString(part.Text)
			continue
		}
		content.WriteByte('{')
		content.WriteString(PrintExpr(part.Expr))
		if part.Spec != "" {
			content.WriteByte(':')
			content.WriteString(part.Spec)
		}
		content.WriteByte('}')
	}
	s := content.String()
	if !strings.Contains(s, `"`) {
		return `f"` + s + `"`
	}
	return "f'" + s + "'"
}
