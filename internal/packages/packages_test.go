package packages

import (
	"testing"

	"texify/internal/latex"
	"texify/internal/source"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "graphicx", want: "graphicx"},
		{in: " siunitx[per-mode=symbol, detect-all] ", want: "siunitx[per-mode=symbol,detect-all]"},
		{in: "x[]", want: "x"},
		{in: "", wantErr: true},
		{in: "bad name", wantErr: true},
		{in: "open[a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			p, err := Parse(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", p)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if p.String() != tt.want {
				t.Errorf("got %q, want %q", p.String(), tt.want)
			}
		})
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	if p, ok := r.Dependency(`\includegraphics`); !ok || p.Name != "graphicx" {
		t.Fatalf("includegraphics -> %+v %v", p, ok)
	}
	if _, ok := r.Dependency("section"); ok {
		t.Error("section needs no package")
	}
	if err := r.Merge(map[string]string{`\SI`: "siunitx[per-mode=symbol]", "myfoo": "foo"}); err != nil {
		t.Fatal(err)
	}
	if p, _ := r.Dependency("SI"); p.Usepackage() != `\usepackage[per-mode=symbol]{siunitx}` {
		t.Errorf("override = %s", p.Usepackage())
	}
	if _, ok := r.Dependency("myfoo"); !ok {
		t.Error("merged command missing")
	}
	if err := r.Merge(map[string]string{"x": "bad name"}); err == nil {
		t.Error("invalid package must fail")
	}
}

func TestIncludeHandler(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		command string
		want    string
		changed bool
	}{
		{
			name:    "after last usepackage",
			src:     "\\documentclass{article}\n\\usepackage{amsmath}\n\\begin{document}\\url{x}\\end{document}",
			command: "url",
			want:    "\\documentclass{article}\n\\usepackage{amsmath}\n\\usepackage{url}\n\\begin{document}\\url{x}\\end{document}",
			changed: true,
		},
		{
			name:    "after documentclass",
			src:     "\\documentclass{article}\n\\begin{document}\\toprule\\end{document}",
			command: "toprule",
			want:    "\\documentclass{article}\n\\usepackage{booktabs}\n\\begin{document}\\toprule\\end{document}",
			changed: true,
		},
		{
			name:    "start of fragment",
			src:     "\\url{x}",
			command: "url",
			want:    "\\usepackage{url}\n\\url{x}",
			changed: true,
		},
		{
			name:    "already included",
			src:     "\\usepackage{graphicx,url}\n\\url{x}",
			command: "url",
			want:    "\\usepackage{graphicx,url}\n\\url{x}",
		},
		{
			name:    "no dependency",
			src:     "\\emph{x}",
			command: "emph",
			want:    "\\emph{x}",
		},
	}
	h := IncludeHandler{Registry: NewRegistry()}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := source.NewBuffer([]byte(tt.src))
			changed, err := h.Handle(buf, latex.Parse([]byte(tt.src)), tt.command)
			if err != nil {
				t.Fatal(err)
			}
			if changed != tt.changed {
				t.Errorf("changed = %v, want %v", changed, tt.changed)
			}
			if buf.Text() != tt.want {
				t.Errorf("got\n%s\nwant\n%s", buf.Text(), tt.want)
			}
		})
	}
}
