// Copyright 2020 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package tool

import (
	"encoding/hex"
	"flag"
	"fmt"
	"strings"

	"github.com/google/syztrace/pkg/log"
)

type Flag struct {
	Name  string
	Value string
}

// ParseFlags is flag.FlagSet.Parse that also understands optional flags:
// flags that an older harness binary may not know. A fuzzing driver that is
// newer than the harness passes them as a single "-optional=name=value:name=value"
// argument (names and values escaped as \xNN where needed) and unknown names are ignored.
func ParseFlags(set *flag.FlagSet, args []string) error {
	flagOptional := set.String(optionalFlag, "", "optional flags for programmatic use only")
	if err := set.Parse(args); err != nil {
		return err
	}
	flags, err := deserializeFlags(*flagOptional)
	if err != nil {
		return err
	}
	for _, f := range flags {
		ff := set.Lookup(f.Name)
		if ff == nil {
			log.Logf(0, "ignoring optional flag %q=%q", f.Name, f.Value)
			continue
		}
		if err := ff.Value.Set(f.Value); err != nil {
			return fmt.Errorf("optional flag %v: %w", f.Name, err)
		}
	}
	return nil
}

const optionalFlag = "optional"

func deserializeFlags(value string) ([]Flag, error) {
	if value == "" {
		return nil, nil
	}
	var flags []Flag
	for _, arg := range strings.Split(value, ":") {
		name, val, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("failed to parse flags %q: no eq", value)
		}
		var err error
		if name, err = flagUnescape(name); err != nil {
			return nil, fmt.Errorf("failed to parse flags %q: %w", value, err)
		}
		if val, err = flagUnescape(val); err != nil {
			return nil, fmt.Errorf("failed to parse flags %q: %w", value, err)
		}
		flags = append(flags, Flag{name, val})
	}
	return flags, nil
}

func needsEscape(ch byte) bool {
	return ch <= 0x20 || ch >= 0x7f || ch == ':' || ch == '=' || ch == '\\'
}

func flagUnescape(s string) (string, error) {
	buf := new(strings.Builder)
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch != '\\' {
			if needsEscape(ch) {
				return "", fmt.Errorf("unescaped char %v", ch)
			}
			buf.WriteByte(ch)
			continue
		}
		if i+4 > len(s) || s[i+1] != 'x' {
			return "", fmt.Errorf("truncated escape sequence")
		}
		res, err := hex.DecodeString(s[i+2 : i+4])
		if err != nil {
			return "", err
		}
		buf.WriteByte(res[0])
		i += 3
	}
	return buf.String(), nil
}
