package classfile_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/archcheck/internal/classfile"
	"github.com/phobologic/archcheck/internal/classfile/classfiletest"
)

const (
	bean = "org.springframework.context.annotation.Bean"
	lazy = "org.springframework.context.annotation.Lazy"
)

func sampleClass() classfiletest.Class {
	return classfiletest.Class{
		Name:        "com.example.Config",
		Super:       "java.lang.Object",
		Interfaces:  []string{"com.example.Marker"},
		Access:      classfile.AccPublic | classfile.AccSuper,
		SourceFile:  "Config.java",
		Annotations: []classfiletest.Annotation{{Type: "com.example.Configuration", Values: map[string]string{"value": "main"}}},
		Fields: []classfiletest.Field{
			{Name: "names", Descriptor: "[Ljava/lang/String;", Access: classfile.AccPrivate},
		},
		Methods: []classfiletest.Method{
			{
				Name:             "processor",
				Descriptor:       "(Lcom/example/Foo;I)Lcom/example/Processor;",
				Access:           classfile.AccPublic | classfile.AccStatic,
				Annotations:      []classfiletest.Annotation{classfiletest.A(bean)},
				ParamAnnotations: [][]classfiletest.Annotation{{classfiletest.A(lazy)}, nil},
				ParamNames:       []string{"foo", "count"},
				Line:             17,
			},
		},
		References: []string{"com.example.Helper", "[Lcom/example/Item;"},
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	c, err := classfile.Parse(sampleClass().Bytes())
	require.NoError(t, err)

	assert.Equal(t, "com.example.Config", c.Name)
	assert.Equal(t, "java.lang.Object", c.Super)
	assert.Equal(t, []string{"com.example.Marker"}, c.Interfaces)
	assert.Equal(t, uint16(61), c.Major)
	assert.Equal(t, "Config.java", c.SourceFile)
	require.Len(t, c.Annotations, 1)
	assert.Equal(t, "com.example.Configuration", c.Annotations[0].Type)
	assert.Equal(t, "main", c.Annotations[0].Values["value"])

	require.Len(t, c.Fields, 1)
	assert.Equal(t, "java.lang.String[]", c.Fields[0].Type)

	require.Len(t, c.Methods, 1)
	m := c.Methods[0]
	assert.Equal(t, "processor", m.Name)
	assert.Equal(t, "com.example.Processor", m.Return)
	assert.NotZero(t, m.Access&classfile.AccStatic)
	assert.Equal(t, 17, m.Line)
	require.Len(t, m.Annotations, 1)
	assert.Equal(t, bean, m.Annotations[0].Type)
	require.Len(t, m.Params, 2)
	assert.Equal(t, "com.example.Foo", m.Params[0].Type)
	assert.Equal(t, "foo", m.Params[0].Name)
	require.Len(t, m.Params[0].Annotations, 1)
	assert.Equal(t, lazy, m.Params[0].Annotations[0].Type)
	assert.Equal(t, "int", m.Params[1].Type)
	assert.Empty(t, m.Params[1].Annotations)

	assert.Contains(t, c.References, "com.example.Helper")
	assert.Contains(t, c.References, "com.example.Item")
	assert.NotContains(t, c.References, "com.example.Config")
}

func TestParseParameterAnnotationsAlignToEnd(t *testing.T) {
	t.Parallel()

	cls := classfiletest.Class{
		Name:  "a.Outer$Inner",
		Super: "java.lang.Object",
		Methods: []classfiletest.Method{{
			Name:       "<init>",
			Descriptor: "(La/Outer;La/Dep;)V",
			// The synthetic outer instance has no entry.
			ParamAnnotations: [][]classfiletest.Annotation{{classfiletest.A(lazy)}},
		}},
	}
	c, err := classfile.Parse(cls.Bytes())
	require.NoError(t, err)
	params := c.Methods[0].Params
	require.Len(t, params, 2)
	assert.Empty(t, params[0].Annotations)
	require.Len(t, params[1].Annotations, 1)
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	valid := sampleClass().Bytes()

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, classfile.ErrTruncated},
		{"bad magic", []byte{0xDE, 0xAD, 0xBE, 0xEF, 0, 0, 0, 61}, classfile.ErrNotClassFile},
		{"truncated", valid[:len(valid)/2], classfile.ErrTruncated},
		{"header only", valid[:10], classfile.ErrTruncated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := classfile.Parse(tt.data)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestParseUnknownConstantTag(t *testing.T) {
	t.Parallel()

	data := []byte{0xCA, 0xFE, 0xBA, 0xBE, 0, 0, 0, 61, 0, 2, 99}
	_, err := classfile.Parse(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tag 99")
}

func TestFieldType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		desc string
		want string
	}{
		{"I", "int"},
		{"Z", "boolean"},
		{"V", "void"},
		{"Ljava/lang/String;", "java.lang.String"},
		{"[[J", "long[][]"},
		{"[Lcom/example/Outer$Inner;", "com.example.Outer$Inner[]"},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			t.Parallel()
			got, err := classfile.FieldType(tt.desc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "Q", "Ljava/lang/String", "II", "["} {
		_, err := classfile.FieldType(bad)
		assert.Error(t, err, "descriptor %q", bad)
	}
}

func TestMethodType(t *testing.T) {
	t.Parallel()

	params, ret, err := classfile.MethodType("(ILjava/lang/Object;[B)V")
	require.NoError(t, err)
	assert.Equal(t, []string{"int", "java.lang.Object", "byte[]"}, params)
	assert.Equal(t, "void", ret)

	params, ret, err = classfile.MethodType("()Ljava/util/List;")
	require.NoError(t, err)
	assert.Empty(t, params)
	assert.Equal(t, "java.util.List", ret)

	for _, bad := range []string{"V", "(I", "(I)", "(X)V"} {
		_, _, err := classfile.MethodType(bad)
		assert.Error(t, err, "descriptor %q", bad)
	}
}
