package cmd

import (
	"bytes"
	"strings"
	"testing"
)

// runCommand 通过根命令执行子命令并捕获输出.
func runCommand(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer

	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}

	return out.String()
}

func TestMQListCommand(t *testing.T) {
	out := runCommand(t, "mq", "list")

	for _, want := range []string{"nats", "redis"} {
		if !strings.Contains(out, want) {
			t.Fatalf("mq list output %q missing %q", out, want)
		}
	}
}

func TestKVListCommand(t *testing.T) {
	out := runCommand(t, "kv", "list")

	for _, want := range []string{"memory", "redis", "nats"} {
		if !strings.Contains(out, want) {
			t.Fatalf("kv list output %q missing %q", out, want)
		}
	}
}
