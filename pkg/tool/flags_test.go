// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"flag"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseFlags(t *testing.T) {
	type Values struct {
		Output bool
		Vv     int
		Cover  string
	}
	type Test struct {
		args string
		vals *Values
	}
	tests := []Test{
		{"", &Values{true, 0, ""}},
		{"-output=false -vv=2", &Values{false, 2, ""}},
		{"-output=false -vv=2 -qux", nil},
		{"-vv=1 " + optionalFlags([]Flag{{"qux", ""}, {"cover", "a b:c"}}), &Values{true, 1, "a b:c"}},
		{optionalFlags([]Flag{{"vv", "x"}}), nil},
	}
	for i, test := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			vals := new(Values)
			flags := flag.NewFlagSet("", flag.ContinueOnError)
			flags.SetOutput(io.Discard)
			flags.BoolVar(&vals.Output, "output", true, "")
			flags.IntVar(&vals.Vv, "vv", 0, "")
			flags.StringVar(&vals.Cover, "cover", "", "")
			args := append(strings.Split(test.args, " "), "5", "./target")
			if args[0] == "" {
				args = args[1:]
			}
			err := ParseFlags(flags, args)
			if test.vals == nil {
				if err == nil {
					t.Fatalf("parsing did not fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("parsing failed: %v", err)
			}
			if diff := cmp.Diff(test.vals, vals); diff != "" {
				t.Fatal(diff)
			}
			if flags.NArg() != 2 || flags.Arg(0) != "5" || flags.Arg(1) != "./target" {
				t.Fatalf("bad args: %q", flags.Args())
			}
		})
	}
}

// optionalFlags builds the argument a newer driver passes for flags the harness may not know.
func optionalFlags(flags []Flag) string {
	return fmt.Sprintf("-%v=%v", optionalFlag, serializeFlags(flags))
}

func serializeFlags(flags []Flag) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, flagEscape(f.Name)+"="+flagEscape(f.Value))
	}
	return strings.Join(parts, ":")
}

func flagEscape(s string) string {
	buf := new(strings.Builder)
	for i := 0; i < len(s); i++ {
		if ch := s[i]; needsEscape(ch) {
			fmt.Fprintf(buf, `\x%02x`, ch)
		} else {
			buf.WriteByte(ch)
		}
	}
	return buf.String()
}

func FuzzParseFlags(f *testing.F) {
	f.Add("foo=bar:baz=\\x20")
	f.Add("")
	f.Fuzz(func(t *testing.T, data string) {
		flags, err := deserializeFlags(data)
		if err != nil {
			return
		}
		value := serializeFlags(flags)
		if strings.IndexByte(value, ' ') != -1 {
			t.Fatalf("flags contain space: %q", value)
		}
		flags1, err := deserializeFlags(value)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(flags, flags1); diff != "" {
			t.Fatal(diff)
		}
	})
}
