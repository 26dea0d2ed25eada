package cli

import (
	"testing"

	"github.com/matzehuels/topoedit/pkg/errors"
	"github.com/matzehuels/topoedit/pkg/render"
)

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		name     string
		explicit string
		output   string
		want     render.Format
		wantErr  bool
	}{
		{"default svg", "", "", render.FormatSVG, false},
		{"explicit wins", "dot", "out.png", render.FormatDOT, false},
		{"from extension", "", "diagram.PNG", render.FormatPNG, false},
		{"gv extension", "", "diagram.gv", render.FormatDOT, false},
		{"unknown explicit", "pdf", "", "", true},
		{"unknown extension", "", "diagram.pdf", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveFormat(tt.explicit, tt.output)
			if tt.wantErr {
				if !errors.Is(err, errors.ErrCodeUnsupported) {
					t.Errorf("err = %v, want unsupported", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("resolveFormat(%q, %q) = %q, %v; want %q", tt.explicit, tt.output, got, err, tt.want)
			}
		})
	}
}
