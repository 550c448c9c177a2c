package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jmendes/peerchat/internal/session"
	"github.com/jmendes/peerchat/internal/store"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	db, err := store.Open(session.DBPath(sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: open store for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()
	if _, err := db.Migrate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	switch args[0] {
	case "chats":
		cmdChats(db, *jsonFlag)
	case "search":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: peerchatctl search <query> [conversation]")
			os.Exit(1)
		}
		scope := ""
		if len(args) >= 3 {
			scope = args[2]
		}
		cmdSearch(db, args[1], scope, *jsonFlag)
	case "clear":
		if len(args) < 2 {
			fmt.Fprintln(os.Stderr, "usage: peerchatctl clear <conversation>")
			os.Exit(1)
		}
		cmdClear(db, args[1])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: peerchatctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  chats                        List conversations")
	fmt.Fprintln(os.Stderr, "  search <query> [conv]        Full-text search, optionally scoped")
	fmt.Fprintln(os.Stderr, "  clear <conversation>         Delete a conversation and its history")
}

func cmdChats(db *store.DB, jsonOut bool) {
	convs, err := db.ListConversations()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(convs)
		return
	}
	for _, c := range convs {
		name := c.Name
		if name == "" {
			name = c.ID
		}
		kind := "dm"
		if c.IsGroup {
			kind = "group"
		}
		fmt.Printf("%-30s %-6s unread=%-3d %s  %s\n",
			name, kind, c.UnreadCount, formatTime(c.LastMessageAt), oneLine(c.LastMessage))
	}
}

func cmdSearch(db *store.DB, query, scope string, jsonOut bool) {
	results, err := db.SearchMessages(query, scope, 50)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if jsonOut {
		outputJSON(results)
		return
	}
	for _, r := range results {
		fmt.Printf("%-25s %s  %s\n", r.Message.ConversationID, formatTime(r.Message.Timestamp), oneLine(r.Snippet))
	}
}

func cmdClear(db *store.DB, id string) {
	if err := db.DeleteConversation(id); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("cleared %s\n", id)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func formatTime(ms int64) string {
	if ms == 0 {
		return "               "
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}
