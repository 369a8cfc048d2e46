package router

import (
	"reflect"
	"strings"
	"testing"
)

func TestTokenizeCommandLine(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"/act add main Opener 10:00 11:00", []string{"/act", "add", "main", "Opener", "10:00", "11:00"}},
		{`/act add main "Night Shift" 21:00 22:30`, []string{"/act", "add", "main", "Night Shift", "21:00", "22:30"}},
		{`/stage add ""`, []string{"/stage", "add", ""}},
		{"  /stages  ", []string{"/stages"}},
		{"", nil},
	}
	for _, c := range cases {
		if got := tokenizeCommandLine(c.in); !reflect.DeepEqual(got, c.want) {
			t.Errorf("tokenize(%q) = %#v, want %#v", c.in, got, c.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	pos, flags, bools := parseFlags([]string{"a1", "--color=#123456", "b2", "--team", "crew", "--cascade"})
	if !reflect.DeepEqual(pos, []string{"a1", "b2"}) {
		t.Fatalf("pos = %#v", pos)
	}
	if flags["color"] != "#123456" || flags["team"] != "crew" {
		t.Fatalf("flags = %#v", flags)
	}
	if !bools["cascade"] {
		t.Fatalf("bools = %#v", bools)
	}
}

func TestParseFlagsTrailingSwitch(t *testing.T) {
	pos, flags, bools := parseFlags([]string{"--cascade"})
	if len(pos) != 0 || len(flags) != 0 || !bools["cascade"] {
		t.Fatalf("pos=%v flags=%v bools=%v", pos, flags, bools)
	}
}

func TestCmdTree(t *testing.T) {
	root := newRoot()
	root.add([]string{"act", "add"}, Command{Route: "act add"})
	root.add([]string{"act", "del"}, Command{Route: "act del"})
	root.add([]string{"stages"}, Command{Route: "stages"})

	if n := root.find([]string{"act", "add"}); n == nil || n.cmd == nil || n.cmd.Route != "act add" {
		t.Fatal("leaf lookup failed")
	}
	if n := root.find([]string{"act"}); n == nil || n.cmd != nil {
		t.Fatal("container node should exist without a handler")
	}
	if n := root.find([]string{"nope"}); n != nil {
		t.Fatal("unknown route should be nil")
	}
	act, _ := root.child("act")
	if got := act.childNames(); !reflect.DeepEqual(got, []string{"add", "del"}) {
		t.Fatalf("childNames = %v", got)
	}
}

func TestSanitizeTelegramCommand(t *testing.T) {
	cases := map[string]string{
		"act add":   "act_add",
		"Act-Move":  "act_move",
		"stages":    "stages",
		"9lives":    "cmd_9lives",
		"__weird__": "weird",
		"!!!":       "",
		"a b   c":   "a_b_c",
	}
	for in, want := range cases {
		if got := sanitizeTelegramCommand(in); got != want {
			t.Errorf("sanitize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTelegramCommandNameFromRoute(t *testing.T) {
	if got, ok := telegramCommandNameFromRoute([]string{"act", "move"}); !ok || got != "act_move" {
		t.Fatalf("got %q ok=%v", got, ok)
	}
	if _, ok := telegramCommandNameFromRoute(nil); ok {
		t.Fatal("empty route should not produce a name")
	}
}

func TestBuildTelegramMenuCommands(t *testing.T) {
	cmds := []Command{
		{Route: "stages", Description: "list stages"},
		{Route: "act add", Description: "add an act", Access: AccessOwnerOnly},
		{Route: "act move", Description: "shift an act"},
	}
	root := newRoot()
	for _, c := range cmds {
		cc := c
		root.add(splitRoute(c.Route), cc)
	}
	menu := buildTelegramMenuCommands(root, cmds)
	if len(menu) == 0 {
		t.Fatal("empty menu")
	}
	seen := map[string]string{}
	for _, m := range menu {
		seen[m.Command] = m.Description
	}
	if _, ok := seen["stages"]; !ok {
		t.Fatalf("missing top-level entry: %v", seen)
	}
	if _, ok := seen["act_add"]; !ok {
		t.Fatalf("missing leaf shortcut: %v", seen)
	}
	if d := seen["act_add"]; !strings.Contains(d, "🔒") {
		t.Fatalf("expected lock marker on owner-only entry, got %q", d)
	}
}

func TestIsOwner(t *testing.T) {
	owners := []int64{10, 20}
	if !isOwner(10, owners) || isOwner(30, owners) || isOwner(0, nil) {
		t.Fatal("owner check broken")
	}
}
