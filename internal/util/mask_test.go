package util_test

import (
	"strings"
	"testing"

	"github.com/dropDatabas3/authcore/internal/util"
)

func TestMaskEmail(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"ana@example.com", "a***@e***.com"},
		{"Ana@Example.COM", "a***@e***.com"},
		{"a@x.io", "a@x***.io"},
		{"user@localhost", "u***@l***"},
		{"", ""},
		{"abc", "***"},
		{"sin-arroba-larga", "s***a"},
	}
	for _, c := range cases {
		if got := util.MaskEmail(c.in); got != c.want {
			t.Errorf("MaskEmail(%q) = %q, quiero %q", c.in, got, c.want)
		}
	}
}

func TestMaskPhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+5491155512345", "+549***45"},
		{"1155512345", "11***45"},
		{"12345", "1***5"},
		{"", ""},
	}
	for _, c := range cases {
		if got := util.MaskPhone(c.in); got != c.want {
			t.Errorf("MaskPhone(%q) = %q, quiero %q", c.in, got, c.want)
		}
	}
}

func TestMaskTarget(t *testing.T) {
	if got := util.MaskTarget("ana@example.com"); !strings.Contains(got, "@") {
		t.Fatalf("MaskTarget(email) = %q, quiero forma de email", got)
	}
	if got := util.MaskTarget("+5491155512345"); got != "+549***45" {
		t.Fatalf("MaskTarget(phone) = %q, quiero %q", got, "+549***45")
	}
	// nunca deja pasar el dato completo
	for _, in := range []string{"ana@example.com", "+5491155512345"} {
		if util.MaskTarget(in) == in {
			t.Fatalf("MaskTarget(%q) no enmascaró nada", in)
		}
	}
}
