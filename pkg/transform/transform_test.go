package transform

import (
	"regexp"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestDefaultsTrimThenInstagram(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	RegisterDefaults(p)
	if p.Count() != 2 {
		t.Fatalf("expected 2 transformers, got %d", p.Count())
	}

	input := model.FormData{
		"name":                   "  Nancy  ",
		InstagramFieldKey:        "  @john  ",
		PartnerInstagramFieldKey: "https://Instagram.com/steve",
	}
	got := p.Transform(input)
	want := model.FormData{
		"name":                   "Nancy",
		InstagramFieldKey:        "https://www.instagram.com/john",
		PartnerInstagramFieldKey: "https://www.instagram.com/steve",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("transform mismatch (-want +got):\n%s", diff)
	}
	if input["name"] != "  Nancy  " {
		t.Fatalf("input map must not be mutated")
	}
}

func TestReversedOrderStillStripsHandle(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	p.Register(Instagram())
	p.Register(Trim)

	got := p.Transform(model.FormData{InstagramFieldKey: "  @john  "})
	if got[InstagramFieldKey] != "https://www.instagram.com/john" {
		t.Fatalf("unexpected value %q", got[InstagramFieldKey])
	}
}

func TestSocialHandleLeavesForeignURLs(t *testing.T) {
	t.Parallel()

	tr := SocialHandle([]string{"ig"}, "https://www.instagram.com/", instagramPrefix)
	cases := map[string]string{
		"https://linktr.ee/eleven":        "https://linktr.ee/eleven",
		"http://www.instagram.com/dustin": "https://www.instagram.com/dustin",
		"www.instagram.com/dustin":        "https://www.instagram.com/www.instagram.com/dustin",
		"":                                "",
		"   ":                             "   ",
		"@@will":                          "https://www.instagram.com/@will",
		"@https://x.com/a":                "@https://x.com/a",
		" https://linktr.ee/max ":         " https://linktr.ee/max ",
	}
	for in, want := range cases {
		got := tr.Transform(model.FormData{"ig": in})["ig"]
		if got != want {
			t.Fatalf("input %q: got %q want %q", in, got, want)
		}
	}
}

func TestSocialHandleWithoutCleanup(t *testing.T) {
	t.Parallel()

	tr := SocialHandle([]string{"tw"}, "https://x.com/", nil)
	got := tr.Transform(model.FormData{"tw": "@max", "other": "@keep"})
	want := model.FormData{"tw": "https://x.com/max", "other": "@keep"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineClearAndNilOutput(t *testing.T) {
	t.Parallel()

	p := NewPipeline()
	p.RegisterFunc(func(model.FormData) model.FormData { return nil })
	p.Register(nil)
	if p.Count() != 1 {
		t.Fatalf("nil transformer should be ignored")
	}
	if got := p.Transform(model.FormData{"a": "b"}); got == nil || len(got) != 0 {
		t.Fatalf("nil output should become an empty map, got %#v", got)
	}
	p.Clear()
	got := p.Transform(model.FormData{"a": " b "})
	if got["a"] != " b " {
		t.Fatalf("empty pipeline should be identity, got %q", got["a"])
	}
}

func TestInstagramPrefixPattern(t *testing.T) {
	t.Parallel()

	if !regexp.MustCompile(instagramPrefix.String()).MatchString("HTTPS://WWW.INSTAGRAM.COM/") {
		t.Fatalf("prefix pattern must be case-insensitive")
	}
}
