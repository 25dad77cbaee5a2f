package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"

	"ragserver/internal/client"
	"ragserver/internal/tui"
)

func main() {
	var serverURL, sessionID string
	var topK int
	flag.StringVar(&serverURL, "server", "http://localhost:8000", "Base URL of the ragserver instance")
	flag.StringVar(&sessionID, "session", "", "Session id to use (defaults to a fresh one)")
	flag.IntVar(&topK, "k", 3, "Number of chunks to retrieve per question")
	flag.Parse()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	api := client.New(serverURL, sessionID)

	// Upload any files given on the command line before starting the chat.
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("open %s: %v", path, err)
		}
		doc, err := api.Upload(path, f)
		f.Close()
		if err != nil {
			log.Fatalf("upload %s: %v", path, err)
		}
		fmt.Printf("uploaded %s (%d chunks)\n", doc.Filename, doc.ChunkCount)
	}

	m := tui.New(api, topK)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
