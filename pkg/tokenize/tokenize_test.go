package tokenize

import (
	"strings"
	"sync"
	"testing"
)

func newAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer()
	if err != nil {
		t.Fatalf("Failed to create analyzer: %v", err)
	}
	return a
}

func TestToHiragana(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"ア", "あ"},
		{"イ", "い"},
		{"カ", "か"},
		{"ガ", "が"},
		{"パ", "ぱ"},
		{"ン", "ん"},
		{"ー", "ー"}, // prolonged sound mark is outside the shifted block
		{"abc", "abc"},
		{"あいう", "あいう"},
		{"テスト", "てすと"},
	}
	for _, tt := range tests {
		if got := ToHiragana(tt.in); got != tt.out {
			t.Errorf("ToHiragana(%q) = %q; want %q", tt.in, got, tt.out)
		}
	}
}

func TestTokenizeKeepsWordWhole(t *testing.T) {
	a := newAnalyzer(t)
	if got := a.Tokenize("学校"); got != "学校" {
		t.Fatalf("Tokenize(学校) = %q; want %q", got, "学校")
	}
}

func TestTokenizeSplitsSentence(t *testing.T) {
	a := newAnalyzer(t)
	got := a.Surfaces("私は学校へ行く")
	if len(got) < 4 {
		t.Fatalf("expected the sentence to be split, got %q", got)
	}
	if strings.Join(got, "") != "私は学校へ行く" {
		t.Errorf("surfaces do not reassemble the input: %q", got)
	}
}

func TestTokenizeBlank(t *testing.T) {
	a := newAnalyzer(t)
	if got := a.Tokenize("  "); got != "" {
		t.Errorf("Tokenize(blank) = %q; want empty", got)
	}
	if got := a.Surfaces(""); got != nil {
		t.Errorf("Surfaces(empty) = %q; want nil", got)
	}
}

func TestTokenizeConcurrent(t *testing.T) {
	a := newAnalyzer(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := a.Tokenize("学校"); got != "学校" {
				t.Errorf("concurrent Tokenize = %q", got)
			}
		}()
	}
	wg.Wait()
}

func TestScriptDetection(t *testing.T) {
	tests := []struct {
		in             string
		kana, kanji, j bool
	}{
		{"がっこう", true, false, true},
		{"テスト", true, false, true},
		{"学校", false, true, true},
		{"school", false, false, false},
	}
	for _, tt := range tests {
		if got := ContainsKana(tt.in); got != tt.kana {
			t.Errorf("ContainsKana(%q) = %v", tt.in, got)
		}
		if got := ContainsKanji(tt.in); got != tt.kanji {
			t.Errorf("ContainsKanji(%q) = %v", tt.in, got)
		}
		if got := IsJapanese(tt.in); got != tt.j {
			t.Errorf("IsJapanese(%q) = %v", tt.in, got)
		}
	}
}
