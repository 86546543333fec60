package tools

import (
	"context"
	"strings"
	"testing"
)

type stubTool struct {
	name  string
	class Class
}

func (s *stubTool) Name() string                       { return s.name }
func (s *stubTool) Description() string                { return "stub" }
func (s *stubTool) Parameters() map[string]interface{} { return object(nil) }
func (s *stubTool) Class() Class                       { return s.class }
func (s *stubTool) Execute(ctx context.Context, args map[string]interface{}) (interface{}, error) {
	return "ok", nil
}

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&stubTool{name: "b", class: ClassGeneral}); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if err := reg.Register(&stubTool{name: "a", class: ClassShell}); err != nil {
		t.Fatalf("register error: %v", err)
	}

	if _, ok := reg.Get("a"); !ok {
		t.Error("expected tool a")
	}
	if _, ok := reg.Get("missing"); ok {
		t.Error("expected missing tool to be absent")
	}
	if got := strings.Join(reg.Names(), ","); got != "a,b" {
		t.Errorf("expected sorted names a,b, got %s", got)
	}

	defs := reg.Definitions()
	if len(defs) != 2 || defs[0].Name != "a" || defs[0].Class != ClassShell {
		t.Errorf("unexpected definitions: %+v", defs)
	}
}

func TestRegistry_RejectsDuplicateAndEmpty(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Register(&stubTool{name: "x"}); err != nil {
		t.Fatalf("register error: %v", err)
	}
	if err := reg.Register(&stubTool{name: "x"}); err == nil {
		t.Error("expected duplicate registration error")
	}
	if err := reg.Register(&stubTool{name: ""}); err == nil {
		t.Error("expected empty name error")
	}
	if reg.Len() != 1 {
		t.Errorf("expected 1 tool, got %d", reg.Len())
	}
}

func TestBuildFromNames(t *testing.T) {
	reg, err := BuildFromNames([]string{"todo", "fs", "fs.read", "shell"}, Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("BuildFromNames error: %v", err)
	}
	if got := strings.Join(reg.Names(), ","); got != "fs.read,fs.write,shell,todo" {
		t.Errorf("unexpected tool set %s", got)
	}

	if _, err := BuildFromNames([]string{"teleport"}, Options{}); err == nil {
		t.Error("expected error for unknown tool")
	}
}

func TestBuildFromNames_AllBuiltins(t *testing.T) {
	reg, err := BuildFromNames(BuiltinNames, Options{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("BuildFromNames error: %v", err)
	}
	if reg.Len() != len(BuiltinNames) {
		t.Fatalf("expected %d tools, got %d", len(BuiltinNames), reg.Len())
	}

	classes := map[string]Class{
		"fs.read":     ClassFilesystem,
		"fs.write":    ClassFilesystem,
		"fs.patch":    ClassFilesystem,
		"code.search": ClassFilesystem,
		"shell":       ClassShell,
		"test.run":    ClassShell,
		"todo":        ClassGeneral,
	}
	for name, want := range classes {
		tool, _ := reg.Get(name)
		if tool.Class() != want {
			t.Errorf("%s: expected class %s, got %s", name, want, tool.Class())
		}
		if tool.Class() == ClassShell {
			if _, ok := tool.(Commander); !ok {
				t.Errorf("%s: shell tools must expose their command", name)
			}
		}
		if tool.Class() == ClassFilesystem {
			_, hasArgs := tool.(PathArgs)
			_, hasEmbedded := tool.(EmbeddedPaths)
			if !hasArgs && !hasEmbedded {
				t.Errorf("%s: filesystem tools must expose their paths", name)
			}
		}
	}
}
