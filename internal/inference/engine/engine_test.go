package engine

import "testing"

func TestGenerateRequestAsChat(t *testing.T) {
	req := GenerateRequest{Model: "m", Prompt: "p", System: "s", Options: Options{Temperature: 0, TopK: 3}}
	got := req.AsChat()
	if got.Model != "m" || got.Options != req.Options {
		t.Fatalf("req=%+v", got)
	}
	if len(got.Messages) != 2 || got.Messages[0] != (Message{Role: "system", Content: "s"}) || got.Messages[1] != (Message{Role: "user", Content: "p"}) {
		t.Fatalf("messages=%+v", got.Messages)
	}

	bare := GenerateRequest{Model: "m", Prompt: "p"}.AsChat()
	if len(bare.Messages) != 1 || bare.Messages[0].Role != "user" {
		t.Fatalf("messages=%+v", bare.Messages)
	}
}
