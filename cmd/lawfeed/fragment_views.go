package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"lawfeed/internal/feed"
	"lawfeed/internal/store"
)

type fragmentView struct {
	ID             string         `yaml:"id"`
	Document       string         `yaml:"document"`
	Type           string         `yaml:"type"`
	Sequence       int            `yaml:"sequence"`
	PublishedAt    string         `yaml:"published_at"`
	Pending        bool           `yaml:"pending_processing"`
	ProcessedCount int            `yaml:"processed_count"`
	ProcessedAt    string         `yaml:"processed_at,omitempty"`
	StagedAt       string         `yaml:"staged_at"`
	Changes        []changeView   `yaml:"changes,omitempty"`
	Text           yamlBlockValue `yaml:"text"`
}

type changeView struct {
	ID        string `yaml:"id"`
	Kind      string `yaml:"kind"`
	Key       string `yaml:"key"`
	Detail    string `yaml:"detail,omitempty"`
	CreatedAt string `yaml:"created_at"`
}

// yamlBlockValue renders multi-line fragment bodies as literal blocks.
type yamlBlockValue string

func (v yamlBlockValue) MarshalYAML() (any, error) {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.LiteralStyle, Value: string(v)}, nil
}

func newFragmentView(fragment *feed.Fragment, changes []store.RecordChange) fragmentView {
	view := fragmentView{
		ID:             fragment.ID,
		Document:       fragment.DocumentName,
		Type:           string(fragment.Type),
		Sequence:       fragment.Sequence,
		PublishedAt:    formatTimestamp(fragment.PublishedAt),
		Pending:        fragment.PendingProcessing,
		ProcessedCount: fragment.ProcessedCount,
		StagedAt:       formatTimestamp(fragment.StagedAt),
		Text:           yamlBlockValue(fragment.Text),
	}
	if fragment.ProcessedAt != nil {
		view.ProcessedAt = formatTimestamp(*fragment.ProcessedAt)
	}
	for _, change := range changes {
		view.Changes = append(view.Changes, changeView{
			ID:        change.ID,
			Kind:      change.Kind,
			Key:       change.Key,
			Detail:    change.Detail,
			CreatedAt: formatTimestamp(change.CreatedAt),
		})
	}
	return view
}

func writeFragmentYAML(w io.Writer, view fragmentView) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(view); err != nil {
		return fmt.Errorf("encode fragment: %w", err)
	}
	return encoder.Close()
}

func writeFragmentDetail(w io.Writer, view fragmentView) {
	fmt.Fprintf(w, "ID:              %s\n", view.ID)
	fmt.Fprintf(w, "Document:        %s\n", view.Document)
	fmt.Fprintf(w, "Type:            %s\n", view.Type)
	fmt.Fprintf(w, "Sequence:        %d\n", view.Sequence)
	fmt.Fprintf(w, "Published:       %s\n", view.PublishedAt)
	fmt.Fprintf(w, "Pending:         %s\n", yesNo(view.Pending))
	fmt.Fprintf(w, "Processed count: %d\n", view.ProcessedCount)
	if view.ProcessedAt != "" {
		fmt.Fprintf(w, "Processed at:    %s\n", view.ProcessedAt)
	}
	if len(view.Changes) > 0 {
		fmt.Fprintln(w, "Changes:")
		for _, change := range view.Changes {
			fmt.Fprintf(w, "  %s %s %s\n", change.Kind, change.Key, change.Detail)
		}
	}
	fmt.Fprintln(w, "Text:")
	fmt.Fprintln(w, string(view.Text))
}

func fragmentRows(fragments []*feed.Fragment) [][]string {
	rows := make([][]string, 0, len(fragments))
	for _, fragment := range fragments {
		rows = append(rows, []string{
			fragment.ID,
			string(fragment.Type),
			formatTimestamp(fragment.PublishedAt),
			yesNo(fragment.PendingProcessing),
			strconv.Itoa(fragment.ProcessedCount),
		})
	}
	return rows
}

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return "-"
	}
	return ts.UTC().Format("2006-01-02 15:04:05")
}
