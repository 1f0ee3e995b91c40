// Package filter provides AIP-160 filter expression parsing and SQL translation.
package filter

import (
	"fmt"
	"strings"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Field declares one filterable identifier and the column it maps to.
type Field struct {
	Name   string
	Column string
	Type   FieldType
}

// FieldType is the declared type of a filterable identifier.
type FieldType int

const (
	TypeString FieldType = iota
	TypeBool
	TypeInt
)

// Schema is the set of identifiers one listing accepts.
type Schema struct {
	fields map[string]Field
	decls  *filtering.Declarations
}

// NewSchema builds filter declarations for the given fields.
func NewSchema(fields ...Field) (*Schema, error) {
	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	byName := make(map[string]Field, len(fields))
	for _, field := range fields {
		name := strings.TrimSpace(field.Name)
		if name == "" || strings.TrimSpace(field.Column) == "" {
			return nil, fmt.Errorf("filter field name and column are required")
		}
		var declType = filtering.TypeString
		switch field.Type {
		case TypeBool:
			declType = filtering.TypeBool
		case TypeInt:
			declType = filtering.TypeInt
		}
		opts = append(opts, filtering.DeclareIdent(name, declType))
		byName[name] = field
	}
	decls, err := filtering.NewDeclarations(opts...)
	if err != nil {
		return nil, fmt.Errorf("create declarations: %w", err)
	}
	return &Schema{fields: byName, decls: decls}, nil
}

// MustSchema is NewSchema for package-level declarations.
func MustSchema(fields ...Field) *Schema {
	schema, err := NewSchema(fields...)
	if err != nil {
		panic(err)
	}
	return schema
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "kind = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// Empty reports whether the condition has no clause.
func (c SQLCondition) Empty() bool {
	return strings.TrimSpace(c.Clause) == ""
}

// Parse parses an AIP-160 filter expression and returns a SQL condition.
// Returns an empty condition for an empty filter string.
func (s *Schema) Parse(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}
	if s == nil || s.decls == nil {
		return SQLCondition{}, fmt.Errorf("filter schema is not configured")
	}

	parsed, err := filtering.ParseFilterString(filterStr, s.decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}
	return s.translateExpr(parsed.CheckedExpr.GetExpr())
}

func (s *Schema) translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return s.translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean identifier such as `is_approved`.
		return s.translateComparisonValues(kind.IdentExpr.Name, "=", true)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

func (s *Schema) translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case filtering.FunctionAnd:
		return s.translateJunction(call.Args, "AND")
	case filtering.FunctionOr:
		return s.translateJunction(call.Args, "OR")
	case filtering.FunctionNot:
		if len(call.Args) != 1 {
			return SQLCondition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := s.translateExpr(call.Args[0])
		if err != nil {
			return SQLCondition{}, err
		}
		return SQLCondition{Clause: fmt.Sprintf("(NOT %s)", inner.Clause), Params: inner.Params}, nil
	case filtering.FunctionEquals:
		return s.translateComparison(call.Args, "=")
	case filtering.FunctionNotEquals:
		return s.translateComparison(call.Args, "!=")
	case filtering.FunctionLessThan:
		return s.translateComparison(call.Args, "<")
	case filtering.FunctionLessEquals:
		return s.translateComparison(call.Args, "<=")
	case filtering.FunctionGreaterThan:
		return s.translateComparison(call.Args, ">")
	case filtering.FunctionGreaterEquals:
		return s.translateComparison(call.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func (s *Schema) translateJunction(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) < 2 {
		return SQLCondition{}, fmt.Errorf("%s requires at least 2 arguments", op)
	}
	clauses := make([]string, 0, len(args))
	var params []any
	for _, arg := range args {
		cond, err := s.translateExpr(arg)
		if err != nil {
			return SQLCondition{}, err
		}
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	return SQLCondition{
		Clause: "(" + strings.Join(clauses, " "+op+" ") + ")",
		Params: params,
	}, nil
}

func (s *Schema) translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	name, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}
	value, err := extractValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}
	return s.translateComparisonValues(name, op, value)
}

func (s *Schema) translateComparisonValues(name string, op string, value any) (SQLCondition, error) {
	field, ok := s.fields[name]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", name)
	}
	if field.Type == TypeBool {
		if _, ok := value.(bool); !ok {
			return SQLCondition{}, fmt.Errorf("field %s expects a boolean", name)
		}
	}
	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", field.Column, op),
		Params: []any{value},
	}, nil
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}
	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		return extractConstValue(kind.ConstExpr)
	case *expr.Expr_IdentExpr:
		// The aip parser resolves true/false as identifiers.
		switch kind.IdentExpr.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("unexpected identifier in value position: %s", kind.IdentExpr.Name)
	default:
		return nil, fmt.Errorf("expected constant, got %T", kind)
	}
}

func extractConstValue(c *expr.Constant) (any, error) {
	if c == nil {
		return nil, fmt.Errorf("nil constant")
	}
	switch kind := c.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	case *expr.Constant_BoolValue:
		return kind.BoolValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
