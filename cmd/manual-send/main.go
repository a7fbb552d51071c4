// manual-send drives a running server through the full prepare and confirm
// flow, asking before the message is actually sent.
//
// Usage:
//
//	MAILGATE_URL=http://localhost:8000 MAILGATE_API_KEY=... go run ./cmd/manual-send
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mailgate "github.com/gsarma/mailgate/sdk"
)

func main() {
	baseURL := os.Getenv("MAILGATE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	client := mailgate.New(baseURL, os.Getenv("MAILGATE_API_KEY"))
	ctx := context.Background()

	status, err := client.AuthStatus(ctx)
	if err != nil {
		log.Fatalf("check auth status: %v", err)
	}
	if !status.Valid {
		log.Fatalf("%s: %s", status.Status, status.Message)
	}
	fmt.Printf("Sending as %s\n", status.User)

	in := bufio.NewReader(os.Stdin)
	to := prompt(in, "Recipient: ")
	if to == "" {
		log.Fatal("no recipient given")
	}

	msg := mailgate.Message{
		To:      []string{to},
		Subject: "mailgate manual send " + time.Now().Format(time.RFC3339),
		Body:    "This is a test message sent with cmd/manual-send.",
	}
	draft, err := client.Prepare(ctx, msg)
	if err != nil {
		log.Fatalf("prepare: %v", err)
	}
	fmt.Printf("Draft %s staged for %d recipient(s), expires in %ds.\n",
		draft.DraftID, draft.Preview.RecipientsCount, draft.ExpiresInSeconds)

	if answer := prompt(in, "Send it? [y/N] "); !strings.EqualFold(answer, "y") {
		out, err := client.Cancel(ctx, draft.DraftID)
		if err != nil {
			log.Fatalf("cancel: %v", err)
		}
		fmt.Println(out.Message)
		return
	}

	out, err := client.Confirm(ctx, draft.DraftID)
	if err != nil {
		log.Fatalf("confirm: %v", err)
	}
	fmt.Println(out.Message)
	if !out.Sent() {
		os.Exit(1)
	}
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}
