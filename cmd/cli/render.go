package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/and161185/forever-vivid/internal/model"
)

var projectTypes = []model.ProjectType{model.ProjectBook, model.ProjectFilm, model.ProjectGift}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// tabName is the bucket key a project type lands in.
func tabName(t model.ProjectType) string {
	switch t {
	case model.ProjectBook:
		return "memoryBooks"
	case model.ProjectFilm:
		return "memoryFilms"
	case model.ProjectGift:
		return "printedGifts"
	}
	return ""
}

func renderFeed(w io.Writer, ms []model.Memory) {
	if len(ms) == 0 {
		fmt.Fprintln(w, "No memories yet. Add one with `vivid add-memory`.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tDESCRIPTION\tTAGS\tMUSIC")
	for _, m := range ms {
		music := ""
		if m.HasMusic {
			music = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Date, m.Description, strings.Join(m.Tags, ", "), music)
	}
	_ = tw.Flush()
}

func renderMemory(w io.Writer, m model.Memory) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", m.Description)
	fmt.Fprintf(tw, "Date:\t%s\n", m.CreatedDate())
	fmt.Fprintf(tw, "Tags:\t%s\n", strings.Join(m.Tags, ", "))
	if m.HasMusic {
		fmt.Fprintf(tw, "Music:\tyes\n")
	} else {
		fmt.Fprintf(tw, "Music:\tno\n")
	}
	fmt.Fprintf(tw, "Image:\t%s\n", m.FullImageURL)
	_ = tw.Flush()
}

func progressBar(p int) string {
	p = min(max(p, 0), 100)
	filled := p / 10
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", 10-filled) + "]"
}

func renderProjects(w io.Writer, b model.Buckets, active model.ProjectType) {
	tabs := make([]string, 0, len(projectTypes))
	for _, t := range projectTypes {
		label := fmt.Sprintf("%ss (%d)", t.Label(), len(b.For(t)))
		if t == active {
			label = "[" + label + "]"
		}
		tabs = append(tabs, label)
	}
	fmt.Fprintln(w, strings.Join(tabs, "  "))
	fmt.Fprintln(w)

	ps := b.For(active)
	if len(ps) == 0 {
		fmt.Fprintf(w, "No %ss yet. Start one with `vivid new-project --type %s`.\n", strings.ToLower(active.Label()), active)
		return
	}
	for _, p := range ps {
		fmt.Fprintf(w, "%s  (%s)\n", p.Title, p.ID)
		fmt.Fprintf(w, "  %s %d%% Complete  Last edited: %s\n", progressBar(p.Progress), p.Progress, p.LastEdited)
		switch p.Type {
		case model.ProjectBook:
			fmt.Fprintf(w, "  cover: %s  pages: %d\n", p.Cover, len(p.Images))
		case model.ProjectFilm:
			fmt.Fprintf(w, "  thumbnail: %s\n", p.Thumbnail)
		default:
			fmt.Fprintf(w, "  memories: %d\n", len(p.MemoryIDs))
		}
	}
}
