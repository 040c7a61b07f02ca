package scoring

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hello World", "hello world"},
		{"punctuation to space", "computer-network, switch!", "computer network switch"},
		{"collapses whitespace", "a   b\t\nc", "a b c"},
		{"keeps digits and underscore", "ipv4_addr 127", "ipv4_addr 127"},
		{"trims edges", "  hello  ", "hello"},
		{"cyrillic", "Компьютер желісі!", "компьютер желісі"},
		{"empty", "", ""},
		{"only punctuation", "?!...", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMatchKeywords(t *testing.T) {
	tests := []struct {
		name       string
		transcript string
		keywords   []string
		want       []string
	}{
		{
			name:       "single word whole match",
			transcript: "The network connects computers",
			keywords:   []string{"network"},
			want:       []string{"network"},
		},
		{
			name:       "single word does not match substring",
			transcript: "networking is fun",
			keywords:   []string{"network"},
			want:       nil,
		},
		{
			name:       "multi word matches as substring",
			transcript: "Бұл компьютер желісі туралы",
			keywords:   []string{"компьютер желісі"},
			want:       []string{"компьютер желісі"},
		},
		{
			name:       "multi word crosses punctuation",
			transcript: "computer, network",
			keywords:   []string{"computer network"},
			want:       []string{"computer network"},
		},
		{
			name:       "case insensitive",
			transcript: "ЖЕЛІ дегеніміз не",
			keywords:   []string{"желі"},
			want:       []string{"желі"},
		},
		{
			name:       "dedupes case variants",
			transcript: "server server",
			keywords:   []string{"Server", "server"},
			want:       []string{"Server"},
		},
		{
			name:       "keeps rubric order",
			transcript: "b comes before a here",
			keywords:   []string{"a", "b"},
			want:       []string{"a", "b"},
		},
		{
			name:       "empty keyword skipped",
			transcript: "anything",
			keywords:   []string{"", "  ", "anything"},
			want:       []string{"anything"},
		},
		{
			name:       "no keywords",
			transcript: "anything",
			keywords:   nil,
			want:       nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MatchKeywords(tt.transcript, tt.keywords)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("MatchKeywords(%q, %v) = %v, want %v", tt.transcript, tt.keywords, got, tt.want)
			}
		})
	}
}

func TestScoreSpeaking(t *testing.T) {
	tests := []struct {
		name            string
		matched         int
		pointPerKeyword uint
		maxPoints       uint
		want            uint
	}{
		{"no matches", 0, 3, 25, 0},
		{"under the cap", 2, 3, 25, 6},
		{"hits the cap", 10, 3, 25, 25},
		{"cap applies exactly", 2, 3, 5, 5},
		{"zero cap means uncapped", 10, 3, 0, 30},
		{"zero points per keyword", 5, 0, 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreSpeaking(tt.matched, tt.pointPerKeyword, tt.maxPoints); got != tt.want {
				t.Errorf("ScoreSpeaking(%d, %d, %d) = %d, want %d", tt.matched, tt.pointPerKeyword, tt.maxPoints, got, tt.want)
			}
		})
	}
}
