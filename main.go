package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

func usage() {
	fmt.Println("Usage: s3du -bucket <name> [-endpoint <url>] [-access-key <id>] [-secret-key <key>] [-region <region>]")
	fmt.Println("\ns3du is an ncdu-style TUI showing space usage inside an S3 bucket.")
	fmt.Println("It scans every key, aggregates sizes into a directory tree and lets")
	fmt.Println("you browse and delete subtrees interactively.")
	fmt.Println("\nEach parameter may come from a flag, the environment (S3_ENDPOINT,")
	fmt.Println("S3_BUCKET, AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, AWS_REGION) or")
	fmt.Println("a .s3cfg file (compatible with s3cmd).")
}

func main() {
	config, err := ResolveConfig(os.Args[1:])
	if err != nil {
		fmt.Printf("Configuration error: %s\n\n", err)
		usage()
		os.Exit(1)
	}

	s3Client, err := NewS3Client(config)
	if err != nil {
		fmt.Printf("Error creating S3 client: %s\n", err)
		os.Exit(1)
	}

	// Test bucket access before scanning
	ctx := context.Background()
	if err := s3Client.HeadBucket(ctx, config.Bucket); err != nil {
		fmt.Printf("Error accessing bucket '%s': %s\n", config.Bucket, err)
		fmt.Println("\nPlease check:")
		fmt.Println("  - Bucket name is correct")
		fmt.Println("  - Your credentials have access to this bucket")
		fmt.Println("  - Your S3 endpoint configuration is correct")
		os.Exit(1)
	}

	model := NewModel(s3Client, config.Bucket)
	program := tea.NewProgram(model, tea.WithAltScreen())

	final, err := program.Run()
	if err != nil {
		fmt.Printf("Error running TUI: %s\n", err)
		os.Exit(1)
	}
	if m, ok := final.(Model); ok && m.scanErr != nil {
		fmt.Printf("Scan failed: %s\n", m.scanErr)
		os.Exit(1)
	}
}
