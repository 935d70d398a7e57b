package furigana

import (
	"regexp"
	"strings"
	"testing"
)

var bracketRe = regexp.MustCompile(`\[[^\]]*\]`)

func TestGreedyAligner_Align(t *testing.T) {
	atomic := OracleFunc(func(term string) bool { return term == "今日" })

	tests := []struct {
		name    string
		opts    []Option
		term    string
		reading string
		want    string
	}{
		{
			name:    "atomic term bracketed as a whole",
			term:    "今日",
			reading: "きょう",
			want:    "今日[きょう]",
		},
		{
			name:    "compound with okurigana",
			term:    "努力する",
			reading: "どりょくする",
			want:    "努[どりょ] 力[くする]する",
		},
		{
			name:    "compound with okurigana and reserve",
			opts:    []Option{WithReserve()},
			term:    "努力する",
			reading: "どりょくする",
			want:    "努[どりょ] 力[く]する",
		},
		{
			name:    "adjective with reserve",
			opts:    []Option{WithReserve()},
			term:    "大きい",
			reading: "おおきい",
			want:    "大[おお]きい",
		},
		{
			name:    "adjective greedy",
			term:    "大きい",
			reading: "おおきい",
			want:    "大[おおき]きい",
		},
		{
			name:    "empty reading",
			term:    "漢字",
			reading: "",
			want:    "漢字",
		},
		{
			name:    "kana only term",
			term:    "する",
			reading: "する",
			want:    "する",
		},
		{
			name:    "reading shorter than term",
			term:    "漢字",
			reading: "か",
			want:    "漢[か]字",
		},
		{
			name:    "no space after an unbracketed ideograph",
			opts:    []Option{WithReserve()},
			term:    "漢字",
			reading: "か",
			want:    "漢字[か]",
		},
		{
			name:    "reading outside kana ranges",
			term:    "漢字",
			reading: "kanji",
			want:    "漢字kanji",
		},
		{
			name:    "unconsumed suffix appended",
			term:    "日",
			reading: "にちようび",
			want:    "日[にちよ]うび",
		},
		{
			name:    "surrounding whitespace trimmed",
			term:    " 今日 ",
			reading: " きょう ",
			want:    "今日[きょう]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewGreedyAligner(atomic, tt.opts...)
			if got := a.Align(tt.term, tt.reading); got != tt.want {
				t.Errorf("Align(%q, %q) = %q, want %q", tt.term, tt.reading, got, tt.want)
			}
		})
	}
}

func TestGreedyAligner_OnlyIdeographsBracketed(t *testing.T) {
	a := NewGreedyAligner(nil)
	got := a.Align("努力する", "どりょくする")

	// Every bracket must follow an ideograph
	runes := []rune(got)
	var bases []string
	for i, r := range runes {
		if r == '[' {
			if i == 0 || !IsKanji(runes[i-1]) {
				t.Fatalf("bracket not preceded by an ideograph in %q", got)
			}
			bases = append(bases, string(runes[i-1]))
		}
	}
	if strings.Join(bases, "") != "努力" {
		t.Errorf("bracketed bases = %v, want [努 力]", bases)
	}

	// What remains outside brackets, minus ideographs and spaces, is the okurigana
	plain := bracketRe.ReplaceAllString(got, "")
	var okurigana strings.Builder
	for _, r := range plain {
		if !IsKanji(r) && r != ' ' {
			okurigana.WriteRune(r)
		}
	}
	if okurigana.String() != "する" {
		t.Errorf("unbracketed characters = %q, want %q", okurigana.String(), "する")
	}
}

func TestGreedyAligner_NeverPanics(t *testing.T) {
	inputs := [][2]string{
		{"", ""},
		{"漢", "ー"},
		{"々", "ゃゃゃゃ"},
		{"ABC漢字", "あ"},
		{"漢字漢字漢字", "かんじ"},
		{"お茶", "おちゃ"},
		{"漢字", "カンジ"},
		{"漢　字", "かん じ"},
	}

	for _, opts := range [][]Option{nil, {WithReserve()}} {
		a := NewGreedyAligner(nil, opts...)
		for _, in := range inputs {
			func() {
				defer func() {
					if r := recover(); r != nil {
						t.Errorf("Align(%q, %q) panicked: %v", in[0], in[1], r)
					}
				}()
				a.Align(in[0], in[1])
			}()
		}
	}
}

func TestGreedyAligner_NoSpaceAroundOkurigana(t *testing.T) {
	a := NewGreedyAligner(nil)
	got := a.Align("食べ物", "たべもの")

	if strings.Contains(got, " ") {
		t.Errorf("Align inserted a space around okurigana: %q", got)
	}
	if got != "食[たべも]べ物" {
		t.Errorf("Align = %q, want %q", got, "食[たべも]べ物")
	}
}
