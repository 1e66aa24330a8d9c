package placeholder

import (
	"strings"
	"testing"
)

const testURL = "https://prod-files-secure.s3.us-west-2.amazonaws.com/abc/def.jpg?X-Amz-Credential=AKIAT73L2G45EXAMPLE&X-Amz-Signature=0abc"

func TestGenerator_Generate_Deterministic(t *testing.T) {
	g := NewGenerator()

	first := g.Generate(NamespaceImage, testURL)
	second := g.Generate(NamespaceImage, testURL)
	if first != second {
		t.Errorf("Generate() not deterministic: %q vs %q", first, second)
	}
	if !strings.HasPrefix(first, "image-placeholder-") {
		t.Errorf("placeholder %q missing namespace prefix", first)
	}
}

func TestGenerator_Generate_ResignedURLCollapses(t *testing.T) {
	g := NewGenerator()

	resigned := "https://prod-files-secure.s3.us-west-2.amazonaws.com/abc/def.jpg?X-Amz-Credential=OTHER&X-Amz-Signature=ffff"
	if g.Generate(NamespaceImage, testURL) != g.Generate(NamespaceImage, resigned) {
		t.Error("re-signed URL produced a different placeholder")
	}
}

func TestGenerator_Namespaces_Distinct(t *testing.T) {
	g := NewGenerator()

	img := g.Generate(NamespaceImage, testURL)
	code := g.Generate(NamespaceCode, testURL)
	if img == code {
		t.Error("image and code namespaces produced identical placeholders")
	}
	if g.Base(img) != g.Base(code) {
		t.Errorf("same URL yielded different tokens across namespaces: %q vs %q",
			g.Base(img), g.Base(code))
	}
}

func TestGenerator_FindAll(t *testing.T) {
	g := NewGenerator()
	ph := g.Generate(NamespaceImage, testURL)

	testCases := []struct {
		name    string
		text    string
		wantLen int
	}{
		{
			name:    "single placeholder",
			text:    "![diagram](" + ph + ")",
			wantLen: 1,
		},
		{
			name:    "placeholder with extension",
			text:    "src=\"/" + ph + ".jpg\"",
			wantLen: 1,
		},
		{
			name:    "both namespaces",
			text:    ph + " and " + g.Generate(NamespaceCode, testURL),
			wantLen: 2,
		},
		{
			name:    "no placeholders",
			text:    "plain markdown with an image-free paragraph",
			wantLen: 0,
		},
		{
			name:    "wrong token alphabet is not a placeholder",
			text:    "image-placeholder-ZZZZZZZZZZZZ",
			wantLen: 0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := g.FindAll(tc.text)
			if len(got) != tc.wantLen {
				t.Errorf("FindAll() = %v, want %d matches", got, tc.wantLen)
			}
		})
	}
}

func TestGenerator_Base(t *testing.T) {
	g := NewGenerator()
	ph := g.Generate(NamespaceImage, testURL)

	base := g.Base(ph)
	if len(base) != 12 {
		t.Errorf("Base(%q) = %q, want 12-char token", ph, base)
	}
	if got := g.Base(ph + ".png"); got != base {
		t.Errorf("Base with extension = %q, want %q", got, base)
	}
	if got := g.Base("not-a-placeholder"); got != "" {
		t.Errorf("Base(non-placeholder) = %q, want empty", got)
	}
}
