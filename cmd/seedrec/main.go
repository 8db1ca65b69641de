// Command seedrec inserts a recording into the store the way the web
// collaborator would: base64-encoded audio with status pending. Useful
// for local testing of the worker without the upload frontend.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meetnotes/recording-transcriber/internal/store"
)

func main() {
	storePath := flag.String("store", "./data/recordings", "Path to the recording store")
	filePath := flag.String("file", "", "Audio file to upload (required)")
	name := flag.String("name", "", "Meeting name (defaults to the file name)")
	flag.Parse()

	if *filePath == "" {
		fmt.Fprintln(os.Stderr, "Usage: seedrec -file recording.mp3 [-name \"Weekly sync\"] [-store ./data/recordings]")
		os.Exit(2)
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read audio file: %v\n", err)
		os.Exit(1)
	}

	meetingName := *name
	if meetingName == "" {
		meetingName = filepath.Base(*filePath)
	}

	st, err := store.NewBadger(store.BadgerOptions{Dir: *storePath})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	rec := &store.Recording{
		MeetingName: meetingName,
		AudioData:   base64.StdEncoding.EncodeToString(data),
	}
	if err := st.Create(context.Background(), rec); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create recording: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Created recording %s (%s, %d bytes)\n", rec.ID, meetingName, len(data))
}
