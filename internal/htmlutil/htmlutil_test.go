package htmlutil

import (
	"reflect"
	"testing"
)

func TestDecodeEntities(t *testing.T) {
	cases := map[string]string{
		"Tom &amp; Jerry":    "Tom & Jerry",
		"a &lt;b&gt; c":      "a <b> c",
		"&quot;hi&quot;":     `"hi"`,
		"it&#39;s":           "it's",
		"a&nbsp;b":           "a b",
		"&amp;amp;":          "&amp;", // single-pass: no double decoding
	}
	for in, want := range cases {
		if got := DecodeEntities(in); got != want {
			t.Errorf("DecodeEntities(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripTags(t *testing.T) {
	in := "<div>  Hello <b>world</b>  </div>"
	want := "Hello world"
	if got := StripTags(in); got != want {
		t.Errorf("StripTags(%q) = %q, want %q", in, got, want)
	}
}

func TestParseAttrs(t *testing.T) {
	in := `class="foo bar" data-id='42' NAME="Name"`
	want := map[string]string{
		"class":   "foo bar",
		"data-id": "42",
		"name":    "Name",
	}
	got := ParseAttrs(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ParseAttrs(%q) = %#v, want %#v", in, got, want)
	}
}

func TestParseAttrsEmptyValue(t *testing.T) {
	in := `required placeholder=''`
	got := ParseAttrs(in)
	if v, ok := got["placeholder"]; !ok || v != "" {
		t.Errorf("expected empty placeholder attr, got %#v", got)
	}
	if _, ok := got["required"]; ok {
		t.Errorf("unquoted boolean attrs should not be captured, got %#v", got)
	}
}
