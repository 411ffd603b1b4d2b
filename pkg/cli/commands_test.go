package cli

import (
	"fmt"
	"slices"
	"testing"

	"github.com/spf13/cobra"

	"github.com/logreporter-dev/logreporter/internal/client"
)

// TestCommandTree verifies the CLI command hierarchy is correct.
func TestCommandTree(t *testing.T) {
	root := Root()

	expectedTopLevel := []string{
		"delete",
		"get",
		"list",
		"submit",
		"version",
	}

	gotTopLevel := childNames(root)
	slices.Sort(expectedTopLevel)

	if len(expectedTopLevel) != len(gotTopLevel) {
		t.Fatalf("top-level command count: got %d, want %d\n  got:  %v\n  want: %v",
			len(gotTopLevel), len(expectedTopLevel), gotTopLevel, expectedTopLevel)
	}
	for i := range expectedTopLevel {
		if expectedTopLevel[i] != gotTopLevel[i] {
			t.Errorf("top-level command mismatch at index %d: got %q, want %q\n  got:  %v\n  want: %v",
				i, gotTopLevel[i], expectedTopLevel[i], gotTopLevel, expectedTopLevel)
			break
		}
	}
}

// TestCommandsHaveRequiredMetadata verifies every command has Use and Short fields set.
func TestCommandsHaveRequiredMetadata(t *testing.T) {
	root := Root()

	var walk func(cmd *cobra.Command, path string)
	walk = func(cmd *cobra.Command, path string) {
		if cmd.Use == "" {
			t.Errorf("%s: Use field is empty", path)
		}
		if cmd.Short == "" {
			t.Errorf("%s: Short field is empty", path)
		}
		for _, child := range cmd.Commands() {
			walk(child, path+"/"+child.Name())
		}
	}

	for _, cmd := range root.Commands() {
		walk(cmd, "logctl/"+cmd.Name())
	}
}

// TestSubmitFlags verifies flag registration on submit.
func TestSubmitFlags(t *testing.T) {
	submitCmd := findSubcommand(Root(), "submit")
	if submitCmd == nil {
		t.Fatal("submit command not found")
	}

	tests := []struct {
		flag      string
		shorthand string
		defValue  string
	}{
		{"filter", "f", ".*"},
		{"wait", "w", "false"},
		{"output", "o", "table"},
		{"no-headers", "", "false"},
	}

	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			f := submitCmd.Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag --%s not found on submit", tt.flag)
			}
			if f.DefValue != tt.defValue {
				t.Errorf("flag --%s default = %q, want %q", tt.flag, f.DefValue, tt.defValue)
			}
			if f.Shorthand != tt.shorthand {
				t.Errorf("flag --%s shorthand = %q, want %q", tt.flag, f.Shorthand, tt.shorthand)
			}
		})
	}
}

// TestOutputFlag verifies every data command accepts -o.
func TestOutputFlag(t *testing.T) {
	for _, name := range []string{"submit", "get", "list", "version"} {
		t.Run(name, func(t *testing.T) {
			cmd := findSubcommand(Root(), name)
			if cmd == nil {
				t.Fatalf("command %q not found", name)
			}
			if cmd.Flags().ShorthandLookup("o") == nil {
				t.Errorf("command %q has no -o flag", name)
			}
		})
	}
}

// TestRootPersistentFlags verifies persistent flags on the root command.
func TestRootPersistentFlags(t *testing.T) {
	root := Root()

	persistentFlags := []string{"server", "token"}
	for _, name := range persistentFlags {
		t.Run(name, func(t *testing.T) {
			f := root.PersistentFlags().Lookup(name)
			if f == nil {
				t.Fatalf("persistent flag --%s not found on root command", name)
			}
		})
	}
}

// TestArgsValidators verifies that commands enforce correct argument counts.
func TestArgsValidators(t *testing.T) {
	root := Root()

	tests := []struct {
		command string
		args    int
		wantErr bool
	}{
		{"submit", 1, false},
		{"submit", 0, true},
		{"submit", 2, true},
		{"get", 1, false},
		{"get", 0, true},
		{"delete", 1, false},
		{"delete", 0, true},
		{"list", 0, false},
		{"list", 1, true},
		{"version", 0, false},
		{"version", 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.command+"/"+argsDesc(tt.args, tt.wantErr), func(t *testing.T) {
			cmd := findSubcommand(root, tt.command)
			if cmd == nil {
				t.Fatalf("command %q not found", tt.command)
			}
			if cmd.Args == nil {
				if tt.wantErr {
					t.Errorf("command %q has no Args validator but expected error with %d args", tt.command, tt.args)
				}
				return
			}
			args := make([]string, tt.args)
			for i := range args {
				args[i] = "test"
			}
			err := cmd.Args(cmd, args)
			if (err != nil) != tt.wantErr {
				t.Errorf("command %q Args(%d args) error = %v, wantErr %v", tt.command, tt.args, err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeBaseURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", client.DefaultBaseURL},
		{"  ", client.DefaultBaseURL},
		{"localhost:9000", "http://localhost:9000/v0"},
		{"https://logs.example.com", "https://logs.example.com/v0"},
		{"https://logs.example.com/", "https://logs.example.com/v0"},
		{"http://logs.example.com/api/v0", "http://logs.example.com/api/v0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := normalizeBaseURL(tt.in); got != tt.want {
				t.Errorf("normalizeBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestResolveServerTarget(t *testing.T) {
	t.Setenv("LOGCTL_SERVER_URL", "envhost:1234")
	t.Setenv("LOGCTL_API_TOKEN", "env-token")

	prevURL, prevToken := serverURL, serverToken
	t.Cleanup(func() { serverURL, serverToken = prevURL, prevToken })

	serverURL, serverToken = "", ""
	base, token := resolveServerTarget()
	if base != "http://envhost:1234/v0" || token != "env-token" {
		t.Errorf("resolveServerTarget() = %q, %q", base, token)
	}

	serverURL, serverToken = "flaghost:80", "flag-token"
	base, token = resolveServerTarget()
	if base != "http://flaghost:80/v0" || token != "flag-token" {
		t.Errorf("resolveServerTarget() with flags = %q, %q", base, token)
	}
}

// childNames returns sorted names of a command's direct children.
func childNames(cmd *cobra.Command) []string {
	children := cmd.Commands()
	names := make([]string, 0, len(children))
	for _, c := range children {
		names = append(names, c.Name())
	}
	slices.Sort(names)
	return names
}

// findSubcommand finds a direct child command by name.
func findSubcommand(parent *cobra.Command, name string) *cobra.Command {
	for _, cmd := range parent.Commands() {
		if cmd.Name() == name {
			return cmd
		}
	}
	return nil
}

// argsDesc returns a short description for test naming.
func argsDesc(n int, wantErr bool) string {
	if wantErr {
		return fmt.Sprintf("rejects_%d_args", n)
	}
	return fmt.Sprintf("accepts_%d_args", n)
}
