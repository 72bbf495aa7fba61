package schema

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func TestLoadYAMLFile(t *testing.T) {
	t.Parallel()

	event, err := NewLoader().LoadEvent(context.Background(), SourceFromFile("testdata/event.yaml"))
	if err != nil {
		t.Fatalf("LoadEvent: %v", err)
	}
	if event.Name != "Vecna's Curse" || len(event.Form) != 5 || len(event.Tickets) != 1 {
		t.Fatalf("unexpected event: %#v", event)
	}
	want := model.Condition{Field: "f-partner", Operator: "=", Value: "Yes"}
	if diff := cmp.Diff(want, event.Form[4].Conditions); diff != "" {
		t.Fatalf("condition mismatch (-want +got):\n%s", diff)
	}
	if !event.Form[0].Conditions.IsZero() {
		t.Fatalf("empty condition object should decode to the zero condition")
	}
	if diff := cmp.Diff([]string{"Yes", "No"}, event.Form[3].OptionValues()); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadEnvelopeFromFS(t *testing.T) {
	t.Parallel()

	raw, err := os.ReadFile("testdata/envelope.json")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	fsys := fstest.MapFS{"events/vecna.json": {Data: raw}}

	event, err := NewLoader(WithFS(fsys)).LoadEvent(context.Background(), SourceFromFS("events/vecna.json"))
	if err != nil {
		t.Fatalf("LoadEvent: %v", err)
	}
	if event.ID != "evt-1" || len(event.Form) != 2 {
		t.Fatalf("envelope should unwrap to the event: %#v", event)
	}
	if event.Form[1].Conditions.Value != "18" {
		t.Fatalf("numeric condition values are stringified, got %q", event.Form[1].Conditions.Value)
	}
}

func TestLoadURL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, `{"id":"evt-2","form":[{"id":"a","field_key":"a","type":"text","page_num":1}]}`)
	}))
	defer srv.Close()

	loader := NewLoader(WithHTTPClient(srv.Client()))
	src, err := SourceFor(srv.URL + "/event")
	if err != nil || src.Kind() != SourceKindURL {
		t.Fatalf("SourceFor should detect URLs: %v", err)
	}
	event, err := loader.LoadEvent(context.Background(), src)
	if err != nil || event.ID != "evt-2" {
		t.Fatalf("LoadEvent: %v %#v", err, event)
	}

	if _, err := loader.Load(context.Background(), SourceFromURL(srv.URL+"/missing")); err == nil {
		t.Fatalf("expected status error")
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewDocument(SourceFromFile("x.json"), []byte("  ")); err == nil {
		t.Fatalf("empty documents are rejected")
	}
	doc := MustNewDocument(SourceFromFile("x.json"), []byte(`{"id":"evt"}`))
	if _, err := Parse(doc); !errors.Is(err, ErrNoFields) {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
	bad := MustNewDocument(SourceFromFile("x.yaml"), []byte("form: [unterminated"))
	if _, err := Parse(bad); err == nil {
		t.Fatalf("expected YAML error")
	}
	if _, err := ParseURLSource("not a url"); err == nil {
		t.Fatalf("expected invalid URL error")
	}
	if _, err := SourceFor(""); err == nil {
		t.Fatalf("expected empty location error")
	}
}

func TestDocumentFormat(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		location string
		raw      string
		want     Format
	}{
		"yaml ext":   {"a.yml", "{}", FormatYAML},
		"json ext":   {"a.json", "id: x", FormatJSON},
		"sniff json": {"event", `  {"id":1}`, FormatJSON},
		"sniff yaml": {"event", "id: 1", FormatYAML},
	}
	for name, tc := range cases {
		doc := MustNewDocument(SourceFromFS(tc.location), []byte(tc.raw))
		if got := doc.Format(); got != tc.want {
			t.Fatalf("%s: got %s want %s", name, got, tc.want)
		}
	}
}
