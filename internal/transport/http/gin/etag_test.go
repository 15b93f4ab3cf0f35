package httpgin

import "testing"

func TestEtagMatches(t *testing.T) {
	strong := contentETag([]byte("ticket"), false)
	weak := contentETag([]byte("ticket"), true)

	cases := []struct {
		name   string
		header string
		tag    string
		want   bool
	}{
		{"empty header", "", strong, false},
		{"exact", strong, strong, true},
		{"weak header strong tag", "W/" + strong, strong, true},
		{"strong header weak tag", strong, weak, true},
		{"list", `"abc", ` + strong, strong, true},
		{"wildcard", "*", strong, true},
		{"other content", contentETag([]byte("other"), false), strong, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := etagMatches(tc.header, tc.tag); got != tc.want {
				t.Errorf("etagMatches(%q, %q) = %v, want %v", tc.header, tc.tag, got, tc.want)
			}
		})
	}
}
