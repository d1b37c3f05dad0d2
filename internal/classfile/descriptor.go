package classfile

import (
	"fmt"
	"strings"
)

var baseTypes = map[byte]string{
	'B': "byte",
	'C': "char",
	'D': "double",
	'F': "float",
	'I': "int",
	'J': "long",
	'S': "short",
	'Z': "boolean",
	'V': "void",
}

func isPrimitive(name string) bool {
	for _, p := range baseTypes {
		if p == name {
			return true
		}
	}
	return false
}

// FieldType converts a field descriptor such as "[Ljava/lang/String;" into a
// Java type name such as "java.lang.String[]".
func FieldType(desc string) (string, error) {
	name, n, err := parseType(desc, 0)
	if err != nil {
		return "", err
	}
	if n != len(desc) {
		return "", fmt.Errorf("descriptor %q: trailing data", desc)
	}
	return name, nil
}

// MethodType splits a method descriptor such as "(ILjava/lang/Object;)V"
// into parameter type names and the return type name.
func MethodType(desc string) ([]string, string, error) {
	if !strings.HasPrefix(desc, "(") {
		return nil, "", fmt.Errorf("method descriptor %q: missing '('", desc)
	}
	var params []string
	i := 1
	for i < len(desc) && desc[i] != ')' {
		name, next, err := parseType(desc, i)
		if err != nil {
			return nil, "", err
		}
		params = append(params, name)
		i = next
	}
	if i >= len(desc) {
		return nil, "", fmt.Errorf("method descriptor %q: missing ')'", desc)
	}
	ret, err := FieldType(desc[i+1:])
	if err != nil {
		return nil, "", err
	}
	return params, ret, nil
}

func parseType(desc string, i int) (string, int, error) {
	dims := 0
	for i < len(desc) && desc[i] == '[' {
		dims++
		i++
	}
	if i >= len(desc) {
		return "", i, fmt.Errorf("descriptor %q: unexpected end", desc)
	}
	var name string
	switch c := desc[i]; c {
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return "", i, fmt.Errorf("descriptor %q: unterminated class name", desc)
		}
		name = strings.ReplaceAll(desc[i+1:i+end], "/", ".")
		i += end + 1
	default:
		base, ok := baseTypes[c]
		if !ok {
			return "", i, fmt.Errorf("descriptor %q: bad type %q", desc, c)
		}
		name = base
		i++
	}
	return name + strings.Repeat("[]", dims), i, nil
}
