package services

import (
	"reflect"
	"testing"

	"github.com/faeln1/go-onebot-guard/internal/domain/message"
)

func TestRenderWelcome(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     message.Chain
	}{
		{
			name:     "mention and group",
			template: "Hi {user}, welcome to {group}!",
			want:     message.Chain{message.Text("Hi "), message.At("42"), message.Text(", welcome to 7!")},
		},
		{
			name:     "mention only",
			template: "{user}",
			want:     message.Chain{message.At("42")},
		},
		{
			name:     "repeated mention",
			template: "{user}{user} hey",
			want:     message.Chain{message.At("42"), message.At("42"), message.Text(" hey")},
		},
		{
			name:     "no placeholders",
			template: "Hello",
			want:     message.Chain{message.Text("Hello")},
		},
		{name: "empty", template: "", want: nil},
		{name: "whitespace", template: "  \n ", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderWelcome(tt.template, "42", "7")
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RenderWelcome(%q) = %#v, want %#v", tt.template, got, tt.want)
			}
		})
	}
}

func TestDefaultWelcomeMentionsUser(t *testing.T) {
	got := DefaultWelcome("42")
	if len(got) != 2 || !got[0].IsMention() || got[0].Data["qq"] != "42" {
		t.Fatalf("DefaultWelcome() = %#v", got)
	}
}
