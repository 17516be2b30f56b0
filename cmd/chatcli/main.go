// Command chatcli is a terminal client for the chat API. Replies stream as
// plain text and are re-rendered as markdown once complete.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/yungbote/localai-backend/internal/platform/shutdown"
)

func main() {
	var (
		baseURL  = flag.String("url", envOr("LOCALAI_URL", "http://localhost:8000"), "backend base URL")
		model    = flag.String("model", "", "model override for every turn")
		promptID = flag.Uint("prompt", 0, "system prompt id for a new conversation")
		style    = flag.String("style", "dark", "glamour style (dark, light, notty)")
		raw      = flag.Bool("raw", false, "skip markdown rendering")
	)
	flag.Parse()

	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	cli := &chatClient{baseURL: strings.TrimRight(*baseURL, "/"), http: &http.Client{}}
	var conversationID *string

	in := bufio.NewScanner(os.Stdin)
	fmt.Println("Type a message, /new for a fresh conversation, /quit to exit.")
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		line := strings.TrimSpace(in.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/new":
			conversationID = nil
			fmt.Println("(new conversation)")
			continue
		}

		req := turnRequest{ConversationID: conversationID, Message: line}
		if *model != "" {
			req.Model = model
		}
		if conversationID == nil && *promptID > 0 {
			id := *promptID
			req.SystemPromptID = &id
		}

		res, err := cli.send(ctx, req, func(delta string) { fmt.Print(delta) })
		fmt.Println()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		id := res.ConversationID.String()
		conversationID = &id

		if !*raw {
			out, err := glamour.Render(res.Content, *style)
			if err != nil {
				fmt.Fprintf(os.Stderr, "render: %v\n", err)
				continue
			}
			fmt.Println(out)
		}
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
