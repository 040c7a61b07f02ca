package model

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestSpeakingRubricBeforeSave(t *testing.T) {
	tests := []struct {
		name     string
		keywords []string
		want     []string
	}{
		{
			name:     "trims and drops empties",
			keywords: []string{" желі ", "", "  "},
			want:     []string{"желі"},
		},
		{
			name:     "dedupes case insensitively",
			keywords: []string{"Network", "network", "NETWORK", "switch"},
			want:     []string{"Network", "switch"},
		},
		{
			name:     "caps the list",
			keywords: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
			want:     []string{"a", "b", "c", "d", "e", "f", "g", "h", "i"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, _ := json.Marshal(tt.keywords)
			rubric := SpeakingRubric{Keywords: raw}
			if err := rubric.BeforeSave(nil); err != nil {
				t.Fatalf("BeforeSave failed: %v", err)
			}
			got := rubric.KeywordList()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("keywords = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuestionTypeAllowed(t *testing.T) {
	tests := []struct {
		sectionType  string
		questionType string
		want         bool
	}{
		{SectionReading, QuestionMCQSingle, true},
		{SectionReading, QuestionMCQMulti, true},
		{SectionReading, QuestionWriting, false},
		{SectionListening, QuestionMCQMulti, true},
		{SectionSpeaking, QuestionSpeakingKeywords, true},
		{SectionSpeaking, QuestionMCQSingle, false},
		{SectionWriting, QuestionWriting, true},
		{SectionWriting, QuestionSpeakingKeywords, false},
		{"unknown", QuestionMCQSingle, false},
	}
	for _, tt := range tests {
		if got := QuestionTypeAllowed(tt.sectionType, tt.questionType); got != tt.want {
			t.Errorf("QuestionTypeAllowed(%s, %s) = %v, want %v", tt.sectionType, tt.questionType, got, tt.want)
		}
	}
}

func TestSpeakingRubricBeforeSaveLeavesMissingKeywords(t *testing.T) {
	rubric := SpeakingRubric{}
	if err := rubric.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave failed: %v", err)
	}
	if rubric.Keywords != nil {
		t.Errorf("keywords = %s, want untouched nil", rubric.Keywords)
	}
}
