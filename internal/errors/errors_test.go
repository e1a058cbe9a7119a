package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "contract error",
			code:    "S001",
			wantMsg: "Expecting subscriber function",
			wantCat: CategoryContract,
		},
		{
			name:    "persistence error",
			code:    "P003",
			wantMsg: "Storage backend failed",
			wantCat: CategoryPersistence,
		},
		{
			name:    "config error",
			code:    "C002",
			wantMsg: "Unknown backend driver",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "S999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestErrorString(t *testing.T) {
	err := New("S004").WithDetail("source 1 is nil")
	if got, want := err.Error(), "S004: Source is not store-like: source 1 is nil"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("P003").Wrap(fmt.Errorf("dial tcp: refused"))
	if got := wrapped.Error(); !strings.HasSuffix(got, "dial tcp: refused") {
		t.Errorf("Error() = %q, want wrapped cause suffix", got)
	}

	plain := Newf(CategoryConfig, "missing %s", "key")
	if got := plain.Error(); got != "missing key" {
		t.Errorf("Error() = %q, want %q", got, "missing key")
	}
}

func TestIsMatchesCodeAndCategory(t *testing.T) {
	err := fmt.Errorf("building store: %w", New("S005"))

	if !stderrors.Is(err, New("S005")) {
		t.Error("errors.Is should match the same code through wrapping")
	}
	if stderrors.Is(err, New("S004")) {
		t.Error("errors.Is should not match a different code")
	}
	if !stderrors.Is(err, &Error{Category: CategoryContract}) {
		t.Error("errors.Is should match a category-only target")
	}
	if !HasCategory(err, CategoryContract) {
		t.Error("HasCategory(contract) = false, want true")
	}
	if HasCategory(err, CategoryPersistence) {
		t.Error("HasCategory(persistence) = true, want false")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "P003") != nil {
		t.Fatal("FromError(nil) should return nil")
	}

	base := stderrors.New("boom")
	e := FromError(base, "P003")
	if e.Code != "P003" {
		t.Errorf("Code = %q, want P003", e.Code)
	}
	if !stderrors.Is(e, base) {
		t.Error("wrapped error should unwrap to the base error")
	}

	orig := New("S001")
	if got := FromError(fmt.Errorf("ctx: %w", orig), "P003"); got != orig {
		t.Error("FromError should return the existing *Error unchanged")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("S004").
		WithDetail("source 2 is nil").
		Wrap(stderrors.New("nil pointer"))

	out := err.Format()
	for _, want := range []string{
		"ERROR S004: Source is not store-like",
		"source 2 is nil",
		"Cause: nil pointer",
		"Hint: Wrap custom readables",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatColors(t *testing.T) {
	EnableColors()
	defer DisableColors()

	out := New("S004").Format()
	if !strings.Contains(out, "\x1b[31;1mERROR S004: \x1b[0m") {
		t.Errorf("Format() should render the error label in bold red, got %q", out)
	}
	if !strings.Contains(out, "\x1b[36mHint: \x1b[0m") {
		t.Errorf("Format() should render the hint label in cyan, got %q", out)
	}

	DisableColors()
	if out := New("S004").Format(); strings.Contains(out, "\x1b[") {
		t.Errorf("Format() after DisableColors contains ANSI codes: %q", out)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("I001").WithDetail("store \"cart\"")

	var got map[string]string
	if jerr := json.Unmarshal(err.FormatJSON(), &got); jerr != nil {
		t.Fatalf("FormatJSON() produced invalid JSON: %v", jerr)
	}
	if got["code"] != "I001" {
		t.Errorf("code = %q, want I001", got["code"])
	}
	if got["category"] != string(CategoryInspect) {
		t.Errorf("category = %q, want %q", got["category"], CategoryInspect)
	}
	if got["detail"] != "store \"cart\"" {
		t.Errorf("detail = %q", got["detail"])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	if len(lines) < 2 {
		t.Fatalf("wrapText produced %d lines, want several", len(lines))
	}
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should return nil")
	}
}

func TestRegisteredCodesHaveCategories(t *testing.T) {
	for _, code := range Codes() {
		tmpl, ok := Lookup(code)
		if !ok {
			t.Fatalf("Lookup(%q) missing", code)
		}
		if tmpl.Category == "" || tmpl.Message == "" {
			t.Errorf("code %s has empty category or message", code)
		}
	}
}
