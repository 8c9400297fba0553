package templates_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacarma/SmartPopup/internal/templates"
)

func TestSubstitute(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		attrs map[string]any
		want  string
	}{
		{"present", "<b>%name%</b>", map[string]any{"name": "Paris"}, "<b>Paris</b>"},
		{"missing", "<b>%name%</b>", map[string]any{}, "<b></b>"},
		{"nil attrs", "<i>%x%</i>", nil, "<i></i>"},
		{"repeated", "%a%-%a%", map[string]any{"a": "z"}, "z-z"},
		{"number", "%pop% people", map[string]any{"pop": 2148000.0}, "2148000 people"},
		{"bool", "%open%", map[string]any{"open": true}, "true"},
		{"empty token", "100%%", nil, "100"},
		{"no tokens", "<p>static</p>", map[string]any{"name": "x"}, "<p>static</p>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := templates.Substitute(tt.src, tt.attrs); got != tt.want {
				t.Fatalf("Substitute(%q) = %q, want %q", tt.src, got, tt.want)
			}
		})
	}
}

func TestExpandI18n(t *testing.T) {
	dict := map[string]string{"greeting": "Bonjour", "name": "Nom"}
	lookup := func(key string) string { return dict[key] }

	src := `<h1>%i18n("greeting")%</h1><dt>%i18n('name')%</dt><dd>%name%</dd>`
	got := templates.ExpandI18n(src, lookup)

	want := `<h1>Bonjour</h1><dt>Nom</dt><dd>%name%</dd>`
	if got != want {
		t.Fatalf("ExpandI18n = %q, want %q", got, want)
	}
	if strings.Contains(got, "%i18n(") {
		t.Fatalf("residual i18n token in %q", got)
	}
}

func TestExpandI18nNilLookupKeepsKey(t *testing.T) {
	if got := templates.ExpandI18n(`%i18n("title")%`, nil); got != "title" {
		t.Fatalf("got %q, want title", got)
	}
}

func TestTokens(t *testing.T) {
	got := templates.Tokens("%name% (%country%) %name%")
	if diff := cmp.Diff([]string{"name", "country"}, got); diff != "" {
		t.Fatalf("tokens mismatch (-want +got):\n%s", diff)
	}
}

func TestSanitize(t *testing.T) {
	got := templates.Sanitize(`<b class="x">Paris</b><script>alert(1)</script><a href="/c" onclick="x()">c</a>`)
	if strings.Contains(got, "script") || strings.Contains(got, "onclick") {
		t.Fatalf("unsafe markup kept: %q", got)
	}
	if !strings.Contains(got, `<b class="x">Paris</b>`) {
		t.Fatalf("safe markup dropped: %q", got)
	}
}

func TestRendererPopupFrame(t *testing.T) {
	r, err := templates.New("")
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render("popup-frame", map[string]any{
		"ID": "popup_1", "Lon": 2.35, "Lat": 48.85,
		"MaxWidth": 300, "MaxHeight": 500, "HTML": "<b>Paris</b>",
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`id="popup_1"`, "<b>Paris</b>", "max-width: 300px"} {
		if !strings.Contains(out, want) {
			t.Errorf("popup frame missing %q:\n%s", want, out)
		}
	}
}

func TestRendererFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "popup.html"),
		[]byte(`{{define "popup-frame"}}<aside>{{safe .HTML}}</aside>{{end}}`), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := templates.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	out, err := r.Render("popup-frame", map[string]any{"HTML": "<b>Paris</b>"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff("<aside><b>Paris</b></aside>", out); diff != "" {
		t.Fatalf("render mismatch (-want +got):\n%s", diff)
	}
	if _, err := r.Render("empty-popup", nil); err == nil {
		t.Fatal("fragments from dir should replace the embedded set")
	}
}
