package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/knowdhq/knowd/internal/knowledge"
)

func menuCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Interactive menu against a running knowd instance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			token, _ := cmd.Flags().GetString("token")
			return runMenu(cmd.Context(), newAPIClient(addr, token))
		},
	}
	cmd.Flags().String("addr", "http://127.0.0.1:8080", "Base URL of the running instance")
	cmd.Flags().String("token", "", "Bearer token, if the API requires one")
	return cmd
}

func runMenu(ctx context.Context, client *apiClient) error {
	for {
		var action string
		form := huh.NewForm(huh.NewGroup(
			huh.NewSelect[string]().
				Title("knowd").
				Options(
					huh.NewOption("Create entity", "entity"),
					huh.NewOption("Add fact", "fact"),
					huh.NewOption("Add note", "note"),
					huh.NewOption("Search", "search"),
					huh.NewOption("Show stats", "stats"),
					huh.NewOption("Quit", "quit"),
				).
				Value(&action),
		))
		if err := form.Run(); err != nil {
			return err
		}

		var err error
		switch action {
		case "entity":
			err = menuCreateEntity(ctx, client)
		case "fact":
			err = menuAddFact(ctx, client)
		case "note":
			err = menuAddNote(ctx, client)
		case "search":
			err = menuSearch(ctx, client)
		case "stats":
			err = menuStats(ctx, client)
		case "quit":
			return nil
		}
		if err != nil {
			fmt.Println("Error:", err)
		}
	}
}

func menuCreateEntity(ctx context.Context, client *apiClient) error {
	var name, typ string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Name").Value(&name),
		huh.NewInput().Title("Type").Value(&typ),
	))
	if err := form.Run(); err != nil {
		return err
	}

	entity, err := client.CreateEntity(ctx, name, typ, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s\n", entity.ID)
	return nil
}

func menuAddFact(ctx context.Context, client *apiClient) error {
	var subject, predicate, object string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Subject").Value(&subject),
		huh.NewInput().Title("Predicate").Value(&predicate),
		huh.NewInput().Title("Object").Value(&object),
	))
	if err := form.Run(); err != nil {
		return err
	}

	fact, err := client.AddFact(ctx, subject, predicate, object, 1.0, "menu")
	if err != nil {
		return err
	}
	fmt.Printf("Added %s\n", fact.ID)
	return nil
}

func menuAddNote(ctx context.Context, client *apiClient) error {
	var content, tags string
	form := huh.NewForm(huh.NewGroup(
		huh.NewText().Title("Content").Value(&content),
		huh.NewInput().Title("Tags (comma-separated)").Value(&tags),
	))
	if err := form.Run(); err != nil {
		return err
	}

	var tagList []string
	for _, tag := range strings.Split(tags, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tagList = append(tagList, tag)
		}
	}

	note, err := client.AddNote(ctx, content, tagList, nil)
	if err != nil {
		return err
	}
	fmt.Printf("Added %s\n", note.ID)
	return nil
}

func menuSearch(ctx context.Context, client *apiClient) error {
	var query string
	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().Title("Query").Value(&query),
	))
	if err := form.Run(); err != nil {
		return err
	}

	reply, err := client.Search(ctx, query)
	if err != nil {
		return err
	}
	if len(reply.Results) == 0 {
		fmt.Println("No results.")
		return nil
	}
	for _, hit := range reply.Results {
		fmt.Printf("[%s] score=%d tokens=%d %s\n", hit.Kind, hit.Score, hit.TokenEstimate, summarizeRecord(hit.Kind, hit.Record))
	}
	fmt.Printf("Total token estimate: %d\n", reply.TotalTokens)
	return nil
}

func menuStats(ctx context.Context, client *apiClient) error {
	stats, err := client.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Entities: %d  Facts: %d  Notes: %d  Conversations: %d\n",
		stats.Entities, stats.Facts, stats.Notes, stats.Conversations)
	return nil
}

// summarizeRecord renders a one-line preview of a search hit.
func summarizeRecord(kind knowledge.Kind, raw json.RawMessage) string {
	switch kind {
	case knowledge.KindEntity:
		var e knowledge.Entity
		if json.Unmarshal(raw, &e) == nil {
			return fmt.Sprintf("%s (%s)", e.Name, e.Type)
		}
	case knowledge.KindFact:
		var f knowledge.Fact
		if json.Unmarshal(raw, &f) == nil {
			return fmt.Sprintf("%s %s %s", f.Subject, f.Predicate, f.Object)
		}
	case knowledge.KindNote:
		var n knowledge.Note
		if json.Unmarshal(raw, &n) == nil {
			if len(n.Content) > 60 {
				return n.Content[:60] + "…"
			}
			return n.Content
		}
	}
	return string(raw)
}
