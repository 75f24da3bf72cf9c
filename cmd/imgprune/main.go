// Command imgprune removes image files that no post references. Re-planned
// images leave orphans behind in the per-post image directories; this cleans
// them up interactively.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: imgprune <posts-directory>")
	}

	if err := pruneOrphans(os.Args[1]); err != nil {
		log.Fatal(err)
	}
}

func pruneOrphans(postsDir string) error {
	reader := bufio.NewReader(os.Stdin)
	totalRemoved := 0

	entries, err := os.ReadDir(postsDir)
	if err != nil {
		return fmt.Errorf("reading posts directory: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		slug := entry.Name()
		postPath := filepath.Join(postsDir, slug+".md")
		content, err := os.ReadFile(postPath)
		if err != nil {
			log.Printf("No post found for image directory %s, skipping", slug)
			continue
		}

		imagesDir := filepath.Join(postsDir, slug)
		orphans, err := findOrphans(imagesDir, slug, string(content))
		if err != nil {
			log.Printf("Error scanning %s: %v", imagesDir, err)
			continue
		}

		if len(orphans) == 0 {
			continue
		}

		fmt.Printf("\nFound %d unreferenced images under %s:\n", len(orphans), imagesDir)
		for _, orphan := range orphans {
			if confirmDelete(reader, orphan) {
				if err := os.Remove(orphan); err != nil {
					log.Printf("Error removing %s: %v", orphan, err)
				} else {
					totalRemoved++
					fmt.Printf("  REMOVED: %s\n", filepath.Base(orphan))
				}
			} else {
				fmt.Printf("  SKIP: %s\n", filepath.Base(orphan))
			}
		}
	}

	fmt.Printf("\nRemoved %d orphaned image files\n", totalRemoved)
	return nil
}

// findOrphans lists image files in dir that the post body never references.
func findOrphans(dir, slug, postContent string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ref := slug + "/" + entry.Name()
		if !strings.Contains(postContent, ref) {
			orphans = append(orphans, filepath.Join(dir, entry.Name()))
		}
	}
	return orphans, nil
}

func confirmDelete(reader *bufio.Reader, path string) bool {
	for {
		fmt.Printf("  DELETE %s? [y/N]: ", filepath.Base(path))
		input, err := reader.ReadString('\n')
		if err != nil {
			log.Printf("Error reading input: %v", err)
			return false
		}
		switch strings.ToLower(strings.TrimSpace(input)) {
		case "y", "yes":
			return true
		case "", "n", "no":
			return false
		default:
			fmt.Println("  Please enter y or n.")
		}
	}
}
