package versioning

import (
	"strings"
	"testing"
)

func TestCompare(t *testing.T) {
	tests := []struct {
		name    string
		a       string
		b       string
		want    Comparison
		wantErr bool
		errMsg  string
	}{
		{"less_patch", "3.4.0", "3.4.1", ComparisonLess, false, ""},
		{"greater_patch", "3.4.17", "3.4.1", ComparisonGreater, false, ""},
		{"less_minor", "3.2.7", "3.3.0", ComparisonLess, false, ""},
		{"greater_major", "4.0.0", "3.4.17", ComparisonGreater, false, ""},
		{"equal", "4.1.1", "4.1.1", ComparisonEqual, false, ""},
		{"prefix_v", "v3.3.0", "3.3.0", ComparisonEqual, false, ""},
		{"alpha_before_release", "4.0.0-alpha.1", "4.0.0", ComparisonLess, false, ""},
		{"alpha_order", "4.0.0-alpha.2", "4.0.0-alpha.11", ComparisonLess, false, ""},
		{"alpha_before_beta", "4.0.0-alpha.30", "4.0.0-beta.1", ComparisonLess, false, ""},
		{"insiders_hash", "0.0.0-insiders.0123abc", "0.0.0-insiders.0123abd", ComparisonLess, false, ""},
		{"leading_zero_hash", "0.0.0-oxide.0123", "0.0.0-oxide.0124", ComparisonLess, false, ""},
		{"build_metadata_ignored", "3.4.1+build.1", "3.4.1+build.2", ComparisonEqual, false, ""},
		{"missing_patch", "3.4", "3.4.0", ComparisonUnknown, true, "invalid semver"},
		{"non_numeric", "a.b.c", "3.4.0", ComparisonUnknown, true, "invalid semver"},
		{"empty", "", "3.4.0", ComparisonUnknown, true, "empty version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Compare(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				if !strings.Contains(err.Error(), tt.errMsg) {
					t.Fatalf("error %q does not contain %q", err, tt.errMsg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("Compare(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestAtLeastAtMost(t *testing.T) {
	if !AtLeast("3.3.0", "3.3.0") {
		t.Error("3.3.0 >= 3.3.0")
	}
	if !AtLeast("4.0.0-alpha.1", "4.0.0-alpha.1") {
		t.Error("alpha.1 >= alpha.1")
	}
	if AtLeast("3.2.7", "3.3.0") {
		t.Error("3.2.7 < 3.3.0")
	}
	if AtLeast("garbage", "1.0.0") {
		t.Error("unparseable input must not satisfy a bound")
	}
	if !AtMost("1.9.6", "1.99.0") {
		t.Error("1.9.6 <= 1.99.0")
	}
	if AtMost("2.0.0", "1.99.0") {
		t.Error("2.0.0 > 1.99.0")
	}
}

func TestParse(t *testing.T) {
	v, err := Parse(" 4.0.0-beta.3+sha.1 ")
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if v.Major != 4 || v.Minor != 0 || v.Patch != 0 {
		t.Fatalf("unexpected core: %+v", v)
	}
	if v.Prerelease() != "beta.3" {
		t.Fatalf("Prerelease() = %q", v.Prerelease())
	}
	if v.String() != "4.0.0-beta.3+sha.1" {
		t.Fatalf("String() = %q", v.String())
	}

	if _, err := Parse("1.0.0-alpha..1"); err == nil {
		t.Fatal("expected error for empty prerelease segment")
	}

	major, err := MajorOf("3.4.17")
	if err != nil || major != 3 {
		t.Fatalf("MajorOf() = %d, %v", major, err)
	}
}
