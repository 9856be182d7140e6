package container

import (
	"reflect"
	"strings"
)

// Token identifies what a caller asks the container for. It is either a
// class token (backed by a Go type) or a symbolic name. Tokens are
// comparable and safe to use as map keys.
//
//	container.TypeOf[*billing.Service]()   // class token
//	container.Named("db.primary")          // symbolic token
type Token struct {
	typ  reflect.Type
	name string
}

// TypeOf returns the class token for T.
// For interfaces pass the interface type itself: TypeOf[Repository]().
func TypeOf[T any]() Token {
	return Token{typ: reflect.TypeOf((*T)(nil)).Elem()}
}

// TokenOf returns the class token for an existing reflect.Type.
func TokenOf(t reflect.Type) Token {
	return Token{typ: t}
}

// Named returns a symbolic token.
func Named(name string) Token {
	return Token{name: name}
}

// IsZero reports whether the token is the zero Token.
func (t Token) IsZero() bool { return t.typ == nil && t.name == "" }

// IsClass reports whether the token is backed by a Go type.
func (t Token) IsClass() bool { return t.typ != nil }

// Type returns the backing type of a class token, nil for symbolic tokens.
func (t Token) Type() reflect.Type { return t.typ }

// Name returns the symbolic name, or "" for class tokens.
func (t Token) Name() string { return t.name }

// String returns a package-qualified type name for class tokens
// ("*github.com/acme/billing.Service") or the symbolic name.
func (t Token) String() string {
	if t.typ == nil {
		return t.name
	}
	return TypeKey(t.typ)
}

// TypeKey returns the package-qualified name of a type, keeping pointer
// and slice markers so *T and T stay distinct.
func TypeKey(t reflect.Type) string {
	var b strings.Builder
	for t.Kind() == reflect.Ptr || t.Kind() == reflect.Slice {
		if t.Kind() == reflect.Ptr {
			b.WriteByte('*')
		} else {
			b.WriteString("[]")
		}
		t = t.Elem()
	}
	if t.PkgPath() != "" {
		b.WriteString(t.PkgPath())
		b.WriteByte('.')
		b.WriteString(t.Name())
		return b.String()
	}
	b.WriteString(t.String())
	return b.String()
}

// containsToken reports whether tok appears in list.
func containsToken(list []Token, tok Token) bool {
	for _, t := range list {
		if t == tok {
			return true
		}
	}
	return false
}
