package check

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/phobologic/archcheck/internal/classfile"
	ct "github.com/phobologic/archcheck/internal/classfile/classfiletest"
	"github.com/phobologic/archcheck/internal/config"
	"github.com/phobologic/archcheck/internal/importer"
	"github.com/phobologic/archcheck/internal/model"
	"github.com/phobologic/archcheck/internal/report"
	"github.com/phobologic/archcheck/internal/rule"
)

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.OutputDir = filepath.Join(t.TempDir(), "build", "checkArchitecture")
	return cfg
}

func processorConfig(access uint16) ct.Class {
	m := config.Default().Markers
	return ct.Class{
		Name:       "com.example.config.AppConfig",
		Super:      "java.lang.Object",
		SourceFile: "AppConfig.java",
		Methods: []ct.Method{{
			Name:        "processor",
			Descriptor:  "(Lcom/example/service/Service;)" + ct.Desc(m.BeanPostProcessor),
			Access:      access,
			Annotations: []ct.Annotation{ct.A(m.Bean)},
			Line:        14,
		}},
	}
}

func service() ct.Class {
	return ct.Class{Name: "com.example.service.Service", Super: "java.lang.Object"}
}

func TestRunPasses(t *testing.T) {
	t.Parallel()

	classes := t.TempDir()
	ct.WriteDir(t, classes, service(), ct.Class{
		Name:  "com.example.config.Plain",
		Super: "java.lang.Object",
		Fields: []ct.Field{
			{Name: "service", Descriptor: "Lcom/example/service/Service;"},
		},
	})
	cfg := testConfig(t)

	summary, err := Run(context.Background(), Options{
		Paths:  []string{classes},
		Config: cfg,
		Logger: zaptest.NewLogger(t),
	})
	require.NoError(t, err)
	assert.False(t, summary.Failed())
	assert.Equal(t, 2, summary.Types)
	assert.Len(t, summary.Results, 3)

	info, err := os.Stat(filepath.Join(cfg.OutputDir, report.FileName))
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestRunGateFailure(t *testing.T) {
	t.Parallel()

	classes := t.TempDir()
	ct.WriteDir(t, classes, processorConfig(classfile.AccPublic), service())
	cfg := testConfig(t)

	summary, err := Run(context.Background(), Options{Paths: []string{classes}, Config: cfg})
	path := filepath.Join(cfg.OutputDir, report.FileName)

	var gf *report.GateFailure
	require.True(t, errors.As(err, &gf))
	assert.Equal(t, path, gf.Path)
	assert.Contains(t, err.Error(), path)
	assert.Equal(t, 2, summary.Violations())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Architecture Violation [Priority: MEDIUM] - Rule 'methods that are annotated with @Bean"))
	assert.True(t, strings.HasSuffix(lines[0], "was violated (2 times):"))
	assert.Equal(t,
		"Parameter <com.example.service.Service> of method <com.example.config.AppConfig.processor(com.example.service.Service)> "+
			"will cause eager initialization as it is not annotated with @Lazy and is not assignable to "+
			"org.springframework.beans.factory.ObjectProvider or assignable to "+
			"org.springframework.context.ApplicationContext or assignable to "+
			"org.springframework.core.env.Environment",
		lines[1])
	assert.Equal(t,
		"Method <com.example.config.AppConfig.processor(com.example.service.Service)> does not have modifier STATIC in (AppConfig.java:14)",
		lines[2])
}

func TestRunDeterministicReport(t *testing.T) {
	t.Parallel()

	classes := t.TempDir()
	ct.WriteDir(t, classes,
		processorConfig(classfile.AccPublic),
		ct.Class{
			Name:  "com.example.service.Service",
			Super: "java.lang.Object",
			Fields: []ct.Field{
				{Name: "config", Descriptor: "Lcom/example/config/AppConfig;"},
			},
		},
	)
	cfg := testConfig(t)

	read := func() string {
		_, err := Run(context.Background(), Options{Paths: []string{classes}, Config: cfg})
		var gf *report.GateFailure
		require.True(t, errors.As(err, &gf))
		data, err := os.ReadFile(gf.Path)
		require.NoError(t, err)
		return string(data)
	}
	first := read()
	assert.Contains(t, first, "Cycle detected: Slice com.example.config -> Slice com.example.service -> Slice com.example.config")
	assert.Equal(t, first, read())
}

func TestRunImportErrorWritesNoReport(t *testing.T) {
	t.Parallel()

	classes := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(classes, "Broken.class"), []byte("nope"), 0o644))
	cfg := testConfig(t)

	summary, err := Run(context.Background(), Options{Paths: []string{classes}, Config: cfg})
	assert.Nil(t, summary)
	var ie *importer.Error
	require.True(t, errors.As(err, &ie))

	_, err = os.Stat(filepath.Join(cfg.OutputDir, report.FileName))
	assert.True(t, os.IsNotExist(err))
}

func TestRunInvalidRules(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Rules = []config.Rule{{Name: "x", Elements: "packages"}}
	_, err := Run(context.Background(), Options{Paths: []string{t.TempDir()}, Config: cfg})
	assert.Error(t, err)
}

func TestVerifyGate(t *testing.T) {
	t.Parallel()

	g := model.NewGraph()
	g.Declare("a.A").AddField("f", g.Ref("int"), 0)
	fields := rule.Fields().Should(rule.BeStatic())

	dir := t.TempDir()
	summary, err := Verify(context.Background(), g, []rule.Rule{fields}, dir, nil)
	var gf *report.GateFailure
	require.True(t, errors.As(err, &gf))
	assert.Equal(t, 1, gf.Violations)
	assert.Equal(t, filepath.Join(dir, report.FileName), summary.Report)

	summary, err = Verify(context.Background(), g, []rule.Rule{rule.Methods().Should(rule.BeStatic()).AllowEmptyShould(true)}, dir, nil)
	require.NoError(t, err)
	assert.False(t, summary.Failed())
}

func TestVerifyWriteError(t *testing.T) {
	t.Parallel()

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := Verify(context.Background(), model.NewGraph(), nil, filepath.Join(blocker, "out"), nil)
	var we *report.WriteError
	assert.True(t, errors.As(err, &we))
}
