// Package gitlog reads commit history from a local repository and ingests
// each commit into the knowledge store as a tagged note, so project history
// becomes searchable alongside everything else.
package gitlog

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/knowdhq/knowd/internal/knowledge"
)

// Commit is one parsed git log entry.
type Commit struct {
	Hash    string
	Author  string
	When    time.Time
	Subject string
}

// logFormat keeps parsing trivial: one record per line, pipe-separated.
const logFormat = "--pretty=format:%H|%an|%ct|%s"

// Read returns up to depth commits from the repository at dir, newest
// first. A non-repository directory is an error.
func Read(ctx context.Context, dir string, depth int) ([]Commit, error) {
	if depth <= 0 {
		depth = 50
	}

	if err := checkRepo(ctx, dir); err != nil {
		return nil, fmt.Errorf("gitlog: %q is not a git repository: %w", dir, err)
	}

	cmd := exec.CommandContext(ctx, "git", "log", fmt.Sprintf("-n%d", depth), logFormat)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("gitlog: git log failed: %w", err)
	}

	return parse(output)
}

func checkRepo(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--is-inside-work-tree")
	cmd.Dir = dir
	return cmd.Run()
}

func parse(output []byte) ([]Commit, error) {
	var commits []Commit

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 {
			continue
		}

		ts, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			continue
		}

		commits = append(commits, Commit{
			Hash:    parts[0],
			Author:  parts[1],
			When:    time.Unix(ts, 0).UTC(),
			Subject: parts[3],
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("gitlog: scan output: %w", err)
	}

	return commits, nil
}

// NoteStore is the slice of the knowledge store Ingest needs. It is
// satisfied by knowledge.Store and by remote API clients.
type NoteStore interface {
	SearchNotes(ctx context.Context, filter knowledge.NoteFilter) ([]*knowledge.Note, error)
	AddNote(ctx context.Context, content string, tags []string, metadata map[string]knowledge.Value) (*knowledge.Note, error)
}

// Ingest stores each commit as a note tagged "git" plus the repository
// name. Returns the number of notes added. Commits already present (same
// hash in metadata) are skipped.
func Ingest(ctx context.Context, store NoteStore, repo string, commits []Commit) (int, error) {
	existing, err := store.SearchNotes(ctx, knowledge.NoteFilter{Tags: []string{"git"}})
	if err != nil {
		return 0, fmt.Errorf("gitlog: list existing notes: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		if h, ok := n.Metadata["commit"]; ok && h.Kind() == knowledge.KindString {
			seen[h.Str()] = struct{}{}
		}
	}

	added := 0
	for _, c := range commits {
		if _, dup := seen[c.Hash]; dup {
			continue
		}

		content := fmt.Sprintf("%s: %s (%s)", shortHash(c.Hash), c.Subject, c.Author)
		meta := map[string]knowledge.Value{
			"commit":    knowledge.String(c.Hash),
			"author":    knowledge.String(c.Author),
			"committed": knowledge.String(c.When.Format(time.RFC3339)),
		}
		if _, err := store.AddNote(ctx, content, []string{"git", repo}, meta); err != nil {
			return added, fmt.Errorf("gitlog: add note for %s: %w", shortHash(c.Hash), err)
		}
		added++
	}

	return added, nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
