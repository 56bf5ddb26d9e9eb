package source

import (
	"go/ast"
	"go/token"
	"strconv"

	"github.com/weftlabs/weft/pkg/resource"
)

// evaluator rebuilds resources from construction-expression ASTs.
// It understands exactly the expression grammar the serializer emits;
// anything outside it fails with SOURCE_ERROR rather than being
// interpreted loosely.
type evaluator struct {
	kinds *resource.KindRegistry
}

// resource evaluates a constructor call expression.
func (ev *evaluator) resource(expr ast.Expr) (resource.Resource, error) {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return nil, srcErrf("expected a constructor call, got %T", expr)
	}

	ctor, qualified, err := ctorIdent(call)
	if err != nil {
		return nil, err
	}
	if len(call.Args) == 0 {
		return nil, srcErrf("constructor %s is missing the id argument", ctor)
	}
	id, err := stringArg(call.Args[0])
	if err != nil {
		return nil, srcErrf("constructor %s: %s", ctor, err.Error())
	}

	opts, hasChildren, err := ev.options(call.Args[1:])
	if err != nil {
		return nil, err
	}

	if qualified {
		switch ctor {
		case "NewNode":
			return buildSafe(func() resource.Resource { return resource.NewNode(id, opts...) })
		case "NewComposite":
			return buildSafe(func() resource.Resource { return resource.NewComposite(id, opts...) })
		case "NewRoot":
			return buildSafe(func() resource.Resource { return resource.NewRoot(id, opts...) })
		default:
			return nil, srcErrf("unknown constructor resource.%s", ctor)
		}
	}

	// Unqualified New<Kind> constructors resolve through the registry.
	// Unregistered kinds degrade to the generic variant with the kind
	// recorded as an attribute, so the value tree still round-trips.
	kindName, ok := kindOf(ctor)
	if !ok {
		return nil, srcErrf("unknown constructor %s", ctor)
	}
	if spec, found := ev.kinds.Lookup(kindName); found {
		r, err := spec.New(id, opts...)
		if err != nil {
			return nil, err
		}
		return r, nil
	}

	opts = append(opts, resource.WithAttr("kind", kindName))
	if hasChildren {
		return buildSafe(func() resource.Resource { return resource.NewComposite(id, opts...) })
	}
	return buildSafe(func() resource.Resource { return resource.NewNode(id, opts...) })
}

// options evaluates the option-call arguments of a constructor.
func (ev *evaluator) options(args []ast.Expr) (opts []resource.Option, hasChildren bool, err error) {
	for _, arg := range args {
		call, ok := arg.(*ast.CallExpr)
		if !ok {
			return nil, false, srcErrf("expected an option call, got %T", arg)
		}
		name, qualified, cerr := ctorIdent(call)
		if cerr != nil {
			return nil, false, cerr
		}
		if !qualified {
			return nil, false, srcErrf("option %s must be package-qualified", name)
		}

		switch name {
		case "WithValue":
			v, verr := ev.value(singleArg(call))
			if verr != nil {
				return nil, false, verr
			}
			opts = append(opts, resource.WithValue(v))
		case "WithLabel":
			s, serr := stringArg(singleArg(call))
			if serr != nil {
				return nil, false, serr
			}
			opts = append(opts, resource.WithLabel(s))
		case "WithHelp":
			s, serr := stringArg(singleArg(call))
			if serr != nil {
				return nil, false, serr
			}
			opts = append(opts, resource.WithHelp(s))
		case "WithName":
			s, serr := stringArg(singleArg(call))
			if serr != nil {
				return nil, false, serr
			}
			opts = append(opts, resource.WithName(s))
		case "WithRenderer":
			s, serr := stringArg(singleArg(call))
			if serr != nil {
				return nil, false, serr
			}
			opts = append(opts, resource.WithRenderer(s))
		case "WithOpenAttrs":
			opts = append(opts, resource.WithOpenAttrs())
		case "WithAttr":
			if len(call.Args) != 2 {
				return nil, false, srcErrf("WithAttr takes a name and a value")
			}
			k, serr := stringArg(call.Args[0])
			if serr != nil {
				return nil, false, serr
			}
			v, verr := ev.value(call.Args[1])
			if verr != nil {
				return nil, false, verr
			}
			opts = append(opts, resource.WithAttr(k, v))
		case "WithChildren":
			children := make([]resource.Resource, 0, len(call.Args))
			for _, childExpr := range call.Args {
				child, cherr := ev.resource(childExpr)
				if cherr != nil {
					return nil, false, cherr
				}
				children = append(children, child)
			}
			hasChildren = true
			opts = append(opts, resource.WithChildren(children...))
		case "WithRequirements":
			strs, serr := stringArgs(call.Args)
			if serr != nil {
				return nil, false, serr
			}
			opts = append(opts, resource.WithRequirements(strs...))
		case "WithImports":
			strs, serr := stringArgs(call.Args)
			if serr != nil {
				return nil, false, serr
			}
			opts = append(opts, resource.WithImports(strs...))
		default:
			return nil, false, srcErrf("unknown option resource.%s", name)
		}
	}
	return opts, hasChildren, nil
}

// value evaluates a value literal expression.
func (ev *evaluator) value(expr ast.Expr) (any, error) {
	switch t := expr.(type) {
	case *ast.BasicLit:
		return basicLit(t)
	case *ast.Ident:
		switch t.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "nil":
			return nil, nil
		}
		return nil, srcErrf("unsupported identifier %q in value position", t.Name)
	case *ast.UnaryExpr:
		if t.Op != token.SUB {
			return nil, srcErrf("unsupported unary operator %s", t.Op)
		}
		inner, err := ev.value(t.X)
		if err != nil {
			return nil, err
		}
		switch n := inner.(type) {
		case int64:
			return -n, nil
		case float64:
			return -n, nil
		}
		return nil, srcErrf("cannot negate %T", inner)
	case *ast.CompositeLit:
		return ev.compositeLit(t)
	case *ast.CallExpr:
		name, qualified, err := ctorIdent(t)
		if err != nil {
			return nil, err
		}
		if !qualified || name != "NewTable" {
			return nil, srcErrf("unsupported call %s in value position", name)
		}
		return ev.table(t)
	default:
		return nil, srcErrf("unsupported expression %T in value position", expr)
	}
}

func (ev *evaluator) compositeLit(lit *ast.CompositeLit) (any, error) {
	switch t := lit.Type.(type) {
	case *ast.ArrayType:
		elem, ok := t.Elt.(*ast.Ident)
		if !ok {
			return nil, srcErrf("unsupported slice element type %T", t.Elt)
		}
		switch elem.Name {
		case "byte":
			out := make([]byte, 0, len(lit.Elts))
			for _, e := range lit.Elts {
				v, err := ev.value(e)
				if err != nil {
					return nil, err
				}
				n, ok := v.(int64)
				if !ok || n < 0 || n > 255 {
					return nil, srcErrf("invalid byte element %v", v)
				}
				out = append(out, byte(n))
			}
			return out, nil
		case "any", "string", "int", "int64", "float64", "bool":
			out := make([]any, 0, len(lit.Elts))
			for _, e := range lit.Elts {
				v, err := ev.value(e)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			return out, nil
		}
		return nil, srcErrf("unsupported slice element type %s", elem.Name)
	case *ast.MapType:
		out := make(map[string]any, len(lit.Elts))
		for _, e := range lit.Elts {
			kv, ok := e.(*ast.KeyValueExpr)
			if !ok {
				return nil, srcErrf("map literal element is not key: value")
			}
			k, err := stringArg(kv.Key)
			if err != nil {
				return nil, err
			}
			v, err := ev.value(kv.Value)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	default:
		return nil, srcErrf("unsupported composite literal type %T", lit.Type)
	}
}

// table evaluates resource.NewTable([]string{...}, []any{...}, ...).
func (ev *evaluator) table(call *ast.CallExpr) (*resource.Table, error) {
	if len(call.Args) == 0 {
		return nil, srcErrf("NewTable is missing the column list")
	}
	colsLit, ok := call.Args[0].(*ast.CompositeLit)
	if !ok {
		return nil, srcErrf("NewTable columns must be a []string literal")
	}
	colsAny, err := ev.compositeLit(colsLit)
	if err != nil {
		return nil, err
	}
	colVals, ok := colsAny.([]any)
	if !ok {
		return nil, srcErrf("NewTable columns must be a []string literal")
	}
	cols := make([]string, len(colVals))
	for i, cv := range colVals {
		s, ok := cv.(string)
		if !ok {
			return nil, srcErrf("NewTable column %d is not a string", i)
		}
		cols[i] = s
	}

	rows := make([][]any, 0, len(call.Args)-1)
	for _, rowExpr := range call.Args[1:] {
		rowAny, err := ev.value(rowExpr)
		if err != nil {
			return nil, err
		}
		row, ok := rowAny.([]any)
		if !ok {
			return nil, srcErrf("NewTable row is not a []any literal")
		}
		rows = append(rows, row)
	}
	return resource.NewTable(cols, rows...), nil
}

// --- helpers ---

// ctorIdent extracts the function name of a call and whether it was
// package-qualified (resource.X vs bare X).
func ctorIdent(call *ast.CallExpr) (name string, qualified bool, err error) {
	switch fn := call.Fun.(type) {
	case *ast.SelectorExpr:
		pkg, ok := fn.X.(*ast.Ident)
		if !ok || pkg.Name != "resource" {
			return "", false, srcErrf("unsupported qualified call %T", fn.X)
		}
		return fn.Sel.Name, true, nil
	case *ast.Ident:
		return fn.Name, false, nil
	default:
		return "", false, srcErrf("unsupported call target %T", call.Fun)
	}
}

// kindOf maps a New<Kind> constructor name to its kind name.
func kindOf(ctor string) (string, bool) {
	if len(ctor) <= 3 || ctor[:3] != "New" {
		return "", false
	}
	return ctor[3:], true
}

func basicLit(lit *ast.BasicLit) (any, error) {
	switch lit.Kind {
	case token.INT:
		n, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return nil, srcErrf("invalid integer literal %s", lit.Value)
		}
		return n, nil
	case token.FLOAT:
		f, err := strconv.ParseFloat(lit.Value, 64)
		if err != nil {
			return nil, srcErrf("invalid float literal %s", lit.Value)
		}
		return f, nil
	case token.STRING:
		s, err := strconv.Unquote(lit.Value)
		if err != nil {
			return nil, srcErrf("invalid string literal %s", lit.Value)
		}
		return s, nil
	default:
		return nil, srcErrf("unsupported literal kind %s", lit.Kind)
	}
}

func singleArg(call *ast.CallExpr) ast.Expr {
	if len(call.Args) != 1 {
		return nil
	}
	return call.Args[0]
}

func stringArg(expr ast.Expr) (string, error) {
	if expr == nil {
		return "", srcErrf("expected exactly one string argument")
	}
	lit, ok := expr.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", srcErrf("expected a string literal, got %T", expr)
	}
	return strconv.Unquote(lit.Value)
}

func stringArgs(exprs []ast.Expr) ([]string, error) {
	out := make([]string, 0, len(exprs))
	for _, e := range exprs {
		s, err := stringArg(e)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// buildSafe converts constructor panics into error values.
func buildSafe(fn func() resource.Resource) (resource.Resource, error) {
	return resource.Build(fn)
}

func srcErrf(format string, args ...any) *resource.Error {
	return resource.NewErrorf(resource.ErrCodeSource, format, args...)
}
