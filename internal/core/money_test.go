package core

import "testing"

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"-12,5", "-12.5", true},
		{"+7", "7", true},
		{"12.345", "12.35", true},
		{"-12.345", "-12.35", true},
		{" 2.50 ", "2.5", true},
		{"0", "0", true},
		{"--1", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"-", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || got.String() != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}
